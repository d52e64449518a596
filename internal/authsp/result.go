package authsp

// Result codes are the closed set a peer can observe. Internal error
// detail is logged server-side and never leaves the process.
const (
	ResultOK                 = "0000"
	ResultInternalError      = "0001"
	ResultAccessDenied       = "0007"
	ResultBackendUnreachable = "0010"
	ResultInvalidRequest     = "0030"
	ResultInvalidPassword    = "0102"
)
