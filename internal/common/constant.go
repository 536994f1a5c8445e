package common

// DeviceIdHeaderName is the HTTP header carrying the device identity on
// outbound requests.
const DeviceIdHeaderName = "X-Device-Id"

// CorrelationIdHeaderName carries a short-lived per-dispatch id used for
// log correlation only, never for deduplication.
const CorrelationIdHeaderName = "X-Correlation-Id"
