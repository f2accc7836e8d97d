package transport

import "fmt"

// PHY identifies an LE physical layer, including the coded variants.
type PHY uint8

const (
	PHYNone PHY = iota
	PHY1M
	PHY2M
	PHYCoded
	PHYCodedS2
	PHYCodedS8
)

func (p PHY) String() string {
	switch p {
	case PHYNone:
		return "No packets"
	case PHY1M:
		return "LE 1M"
	case PHY2M:
		return "LE 2M"
	case PHYCoded:
		return "LE Coded"
	case PHYCodedS2:
		return "S=2 Coded"
	case PHYCodedS8:
		return "S=8 Coded"
	}
	return "Unknown"
}

// hciReasons names the disconnect reason codes a peripheral commonly sees.
var hciReasons = map[uint8]string{
	0x05: "authentication failure",
	0x08: "connection timeout",
	0x13: "remote user terminated connection",
	0x14: "remote device terminated connection: low resources",
	0x15: "remote device terminated connection: power off",
	0x16: "connection terminated by local host",
	0x22: "LMP response timeout",
	0x28: "instant passed",
	0x3b: "unacceptable connection parameters",
	0x3d: "connection terminated due to MIC failure",
	0x3e: "connection failed to be established",
}

// ReasonString names an HCI disconnect reason code for logging.
func ReasonString(reason uint8) string {
	if s, ok := hciReasons[reason]; ok {
		return s
	}
	return fmt.Sprintf("unknown reason 0x%02x", reason)
}
