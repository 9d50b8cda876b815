// Session keys follow the canonical format:
//
//	biz:{businessID}:{channel}:{senderID}
//
// Examples:
//
//	biz:42:whatsapp:9613123456
//	biz:42:webchat:sess-8f0c
//
// Sender ids (phone numbers in particular) are not unique across
// businesses, so all per-sender state is scoped by the composite key.
package sessions

import "fmt"

// Key builds the canonical session key for one sender talking to one business.
func Key(businessID, channel, senderID string) string {
	return fmt.Sprintf("biz:%s:%s:%s", businessID, channel, senderID)
}
