package common

const (
	// MaxSubmitRequestBody limits JSON request bodies for the submit endpoint.
	MaxSubmitRequestBody = 1 << 20
)
