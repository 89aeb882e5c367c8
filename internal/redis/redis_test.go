package redis

import (
	"errors"
	"testing"
)

func TestIsBusyGroup(t *testing.T) {
	if !IsBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Fatal("BUSYGROUP reply should be recognized")
	}
	if IsBusyGroup(errors.New("NOGROUP No such consumer group")) {
		t.Fatal("NOGROUP is not a busy-group reply")
	}
	if IsBusyGroup(nil) {
		t.Fatal("nil error is not a busy-group reply")
	}
}
