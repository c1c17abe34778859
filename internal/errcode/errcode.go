package errcode

// Error code convention:
// - 0: no error
// - 4xxx: recoverable conditions; the core degrades to a safe default and keeps going
// - 5xxx: system errors that abort the current operation
const (
	OK                  = 0
	DecodeError         = 4001
	UnknownTemplate     = 4002
	UnknownSectionKey   = 4003
	ResourceMissing     = 4004
	InvalidReorderIndex = 4005
	SystemError         = 5000
	SurfaceUnavailable  = 5001
)

// Text returns a short stable name for a code, used as a log attribute and in API payloads.
func Text(code int) string {
	switch code {
	case OK:
		return "ok"
	case DecodeError:
		return "decode_error"
	case UnknownTemplate:
		return "unknown_template"
	case UnknownSectionKey:
		return "unknown_section_key"
	case ResourceMissing:
		return "resource_missing"
	case InvalidReorderIndex:
		return "invalid_reorder_index"
	case SystemError:
		return "system_error"
	case SurfaceUnavailable:
		return "surface_unavailable"
	default:
		return "unknown"
	}
}

// Recoverable reports whether the code belongs to the 4xxx range.
func Recoverable(code int) bool {
	return code >= 4000 && code < 5000
}
