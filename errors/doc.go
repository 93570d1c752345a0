// Package errors provides the coded error taxonomy shared by every bee component.
//
// # Codes
//
// Every failure is a Code plus a message. A Code packs a family base in the
// upper bits and a cause in the low 8 bits:
//
//	code := errors.MakeCode(errors.BaseInvalid, 0x01) // == errors.InvalidType
//	base, sub := code.Decode()                        // 0x02, 0x01
//
// Families: internal, invalid-argument, channel, I/O, other, OS, web3 and
// SQL. An *Error never holds a cause chain. Wrap flattens the wrapped text
// into the new message and keeps the code:
//
//	if err := conn.Dial(); err != nil {
//	    return errors.Wrap(err, "Source", "Run", "dial")
//	}
//
// # Conversion
//
// Convert maps any Go error onto a code. Platform I/O errors are classified
// by KindOf (errno, fs sentinels, net timeouts) and FromIO turns the kind
// into a sub-code. Parse errors become invalid-type, JSON decode errors
// become I/O invalid-data, and anything unknown becomes the generic "other"
// code.
//
// # Branching
//
// Branch on predicates or codes, never on message text:
//
//	switch {
//	case errors.IsConnection(err):
//	    // reconnect
//	case errors.IsOneOf(err, errors.IOTimedOut):
//	    // back off
//	}
//
// errors.Is from the standard library matches *Error values by code.
//
// # Classification
//
// Classify groups codes into transient, invalid and fatal classes.
// RetryConfig uses the class to decide whether a failed attempt is retried.
package errors
