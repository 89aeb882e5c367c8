package stream

import "fmt"

// AckPolicy controls what happens to a message whose downstream processing
// fails: "ack" removes it from the pending-entries set anyway, "ignore" leaves
// it pending for out-of-band recovery.
type AckPolicy string

const (
	AckPolicyAck    AckPolicy = "ack"
	AckPolicyIgnore AckPolicy = "ignore"
)

// ParseAckPolicy parses a configured policy string. Empty input resolves to
// the default policy, AckPolicyAck.
func ParseAckPolicy(s string) (AckPolicy, error) {
	switch AckPolicy(s) {
	case "":
		return AckPolicyAck, nil
	case AckPolicyAck, AckPolicyIgnore:
		return AckPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown ack policy %q", s)
	}
}

// Message is a single stream entry handed downstream. The producer retains no
// reference to it after emission; acknowledgment is driven entirely by
// downstream code through the Ack context.
type Message struct {
	// ID is the store-assigned entry id, totally ordered within a stream.
	ID string `json:"id"`
	// Data holds the entry's field/value pairs as returned by the store.
	Data map[string]string `json:"data"`

	Ack *AckContext `json:"-"`
}

// AckContext carries everything needed to acknowledge a message: the stream
// and consumer group it was claimed from, and the on-failure policy in effect.
// Downstream code may override the policy at most once before terminal
// handling.
type AckContext struct {
	Stream string
	Group  string

	onFailure  AckPolicy
	overridden bool
}

func NewAckContext(streamName, group string, onFailure AckPolicy) *AckContext {
	return &AckContext{
		Stream:    streamName,
		Group:     group,
		onFailure: onFailure,
	}
}

// OnFailure returns the policy currently in effect for the message.
func (a *AckContext) OnFailure() AckPolicy {
	return a.onFailure
}

// SetOnFailure overrides the message's failure policy. A second override is an
// error; the first one wins.
func (a *AckContext) SetOnFailure(p AckPolicy) error {
	if a.overridden {
		return fmt.Errorf("ack policy for stream %s already overridden", a.Stream)
	}

	a.onFailure = p
	a.overridden = true

	return nil
}
