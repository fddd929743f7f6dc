package at

const (
	// Terminal Control
	CR   = "\r"
	CRLF = "\r\n"

	// ResultOK is the final result sent back for every inbound line. The
	// headset side of the HSP link expects it even for commands the gateway
	// does not recognize.
	ResultOK = CRLF + "OK" + CRLF

	// Ring is the unsolicited ring alert sent while an incoming call is
	// pending.
	Ring = CRLF + "RING" + CRLF

	// Commands the headset sends to the gateway.
	CmdSpeakerGain    = "AT+VGS="
	CmdMicrophoneGain = "AT+VGM="
	CmdButton         = "AT+CKPD=200"
)

// CommandKind identifies the headset-to-gateway commands of the HSP control
// channel.
type CommandKind int

const (
	CommandUnknown        CommandKind = iota
	CommandSpeakerGain                // AT+VGS=<n>, headset reports its speaker volume
	CommandMicrophoneGain             // AT+VGM=<n>, headset reports its microphone volume
	CommandButton                     // AT+CKPD=200, multi-function button pressed
)

// Command is one parsed inbound line. Gain is meaningful only for the two
// gain kinds.
type Command struct {
	Kind CommandKind
	Gain uint16
}
