package yolink

// Request is the JSON envelope accepted by the upstream API endpoint.
//
// Every call carries a client timestamp and a method string; device-scoped
// calls additionally name the target device and present its opaque token.
type Request struct {
	Time         int64          `json:"time"`
	Method       string         `json:"method"`
	TargetDevice string         `json:"targetDevice,omitempty"`
	Token        string         `json:"token,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
}

// Response is the JSON envelope returned by the upstream API endpoint.
// Code is CodeSuccess on success; any other value is a business error.
type Response struct {
	Time   int64          `json:"time"`
	Method string         `json:"method"`
	Code   string         `json:"code"`
	Desc   string         `json:"desc"`
	Data   map[string]any `json:"data"`
}

// TokenResponse is the payload returned by the OAuth2-style token endpoint
// for both client_credentials and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// DeviceInfo describes one entry of the upstream device list.
//
// Token is the device-scoped authorization token that must accompany
// every getState/setState call for this device.
type DeviceInfo struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Token    string `json:"token"`
	ModelID  string `json:"modelName,omitempty"`

	// ParentDeviceID links paired devices, e.g. a garage door controller
	// bound to its door sensor.
	ParentDeviceID string `json:"parentDeviceId,omitempty"`
}
