package appointments

import (
	"fmt"
	"math/rand"
)

// Source tags the channel that created an appointment. It prefixes the
// confirmation code so staff can tell at a glance where a booking came from.
type Source string

const (
	SourceWebChat Source = "CHAT"
	SourceSMS     Source = "SMS"
	SourceVoice   Source = "VAPI"
)

// NewConfirmationCode builds a code like CHAT-48213. Five random digits keep
// every code at 10 characters or fewer for all sources.
func NewConfirmationCode(source Source) string {
	return fmt.Sprintf("%s-%05d", source, 10000+rand.Intn(90000))
}
