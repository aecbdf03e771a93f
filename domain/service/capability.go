package service

// Capability tags declared by providers and required by handlers. Matching
// is exact subset containment over these strings.
const (
	CapSendMessage   = "send_message"
	CapFetchMessages = "fetch_messages"
	CapMemorize      = "memorize"
	CapRecall        = "recall"
	CapForget        = "forget"
	CapExecuteTool   = "execute_tool"
	CapSendDeferral  = "send_deferral"
	CapFetchGuidance = "fetch_guidance"
	CapLogEvent      = "log_event"
)
