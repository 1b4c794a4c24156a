package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fieldserve/internal/core"

	pbCore "github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"
)

// AdminTopic is the FCM topic admin consoles subscribe to.
const AdminTopic = "admin_alerts"

// Dispatcher is the notification collaborator the lifecycle engine talks
// to. Every message is persisted to the notifications collection first
// (the in-app inbox), then pushed best-effort over FCM. Push failure is
// logged and swallowed; a Send error means only that the record could not
// be stored.
type Dispatcher struct {
	app pbCore.App
	fcm *FCMService // nil disables push, store-only mode
}

func NewDispatcher(app pbCore.App, fcm *FCMService) *Dispatcher {
	return &Dispatcher{app: app, fcm: fcm}
}

func (d *Dispatcher) Send(ctx context.Context, n *core.Notification) error {
	if n == nil || n.RecipientID == "" {
		return errors.New("notification has no recipient")
	}

	collection, err := d.app.FindCollectionByNameOrId("notifications")
	if err != nil {
		return fmt.Errorf("notifications collection: %w", err)
	}

	record := pbCore.NewRecord(collection)
	record.Set("recipient_id", n.RecipientID)
	record.Set("type", n.Type)
	record.Set("title", n.Title)
	record.Set("message", n.Message)
	record.Set("data", n.Data)
	record.Set("read", false)

	if err := d.app.Save(record); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	n.ID = record.Id

	if d.fcm == nil {
		return nil
	}

	payload := &Payload{
		Title: n.Title,
		Body:  n.Message,
		Data:  stringifyData(n.Data),
	}

	if n.RecipientID == core.ChannelAdmin {
		if _, err := d.fcm.SendToTopic(ctx, AdminTopic, payload); err != nil {
			log.Printf("❌ [NOTIFY] admin topic push failed: %v", err)
		}
		return nil
	}

	token, clearToken := d.lookupToken(n.RecipientID)
	if token == "" {
		return nil
	}

	payload.DeviceToken = token
	if _, err := d.fcm.Send(ctx, payload); err != nil {
		log.Printf("❌ [NOTIFY] push to %s failed: %v", n.RecipientID, err)
		if IsTokenInvalid(err) && clearToken != nil {
			log.Printf("🧹 [NOTIFY] clearing stale token for %s", n.RecipientID)
			clearToken()
		}
	}
	return nil
}

// lookupToken resolves the recipient's device token from whichever auth
// collection they live in, and returns a func that clears it if FCM
// reports the token dead.
func (d *Dispatcher) lookupToken(recipientID string) (string, func()) {
	for _, collection := range []string{"technicians", "customers"} {
		record, err := d.app.FindRecordById(collection, recipientID)
		if err != nil {
			continue
		}
		token := record.GetString("fcm_token")
		clear := func() {
			record.Set("fcm_token", "")
			if err := d.app.Save(record); err != nil {
				log.Printf("⚠️ [NOTIFY] failed to clear token for %s: %v", recipientID, err)
			}
		}
		return token, clear
	}
	return "", nil
}

// stringifyData flattens the JSON data map into the string-only form FCM
// accepts.
func stringifyData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = cast.ToString(v)
	}
	return out
}
