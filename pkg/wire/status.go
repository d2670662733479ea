package wire

// Status is a response status code.
type Status uint8

const (
	// StatusSuccess indicates the command completed.
	StatusSuccess Status = 0

	// StatusInvalidMessage indicates the request could not be decoded.
	StatusInvalidMessage Status = 1

	// StatusInvalidCommand indicates an unknown command.
	StatusInvalidCommand Status = 2

	// StatusInvalidParameter indicates a parameter value is out of range.
	StatusInvalidParameter Status = 3

	// StatusBusy indicates the node could not serve the command now.
	StatusBusy Status = 4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidMessage:
		return "INVALID_MESSAGE"
	case StatusInvalidCommand:
		return "INVALID_COMMAND"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
