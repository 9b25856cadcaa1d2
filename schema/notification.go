package schema

import "time"

// Push notification authentication schemes.
const (
	PushAuthSchemeBearer = "bearer"
	PushAuthSchemeAPIKey = "apiKey"
	PushAuthSchemeBasic  = "basic"
)

// PushNotificationAuth describes how webhook deliveries authenticate to the
// receiver.
type PushNotificationAuth struct {
	// Scheme is "bearer", "apiKey" or "basic". (Required)
	Scheme string `json:"scheme"`
	// Token for the bearer scheme.
	Token *string `json:"token,omitempty"`
	// Key for the apiKey scheme.
	Key *string `json:"key,omitempty"`
	// Header name for the apiKey scheme. Defaults to "X-API-Key".
	HeaderName *string `json:"headerName,omitempty"`
	// Username for the basic scheme.
	Username *string `json:"username,omitempty"`
	// Password for the basic scheme.
	Password *string `json:"password,omitempty"`
}

// PushNotificationConfig registers a webhook to receive task events. A task
// may carry several configs; each receives every status and artifact event.
type PushNotificationConfig struct {
	// Opaque identifier, shaped like "pnc_<uuid>". Assigned by the server.
	ID string `json:"id"`
	// Webhook URL that will receive POSTed events. (Required)
	URL string `json:"webhookUrl"`
	// Optional authentication applied to deliveries.
	Authentication *PushNotificationAuth `json:"authenticationInfo,omitempty"`
	// When the config was created.
	CreatedAt time.Time `json:"createdAt"`
}
