// Package env reads typed values from environment variables.
//
// [Parse] distinguishes the three ways a lookup can go wrong from the one way
// it can go right: the variable may be absent (not an error), present but not
// valid UTF-8 ([NotUnicodeError]), or present but rejected by the caller's
// parser ([ParseError]).
//
//	debug, found, err := env.Parse("APP_DEBUG", strconv.ParseBool)
//	if err != nil {
//	    return err
//	}
//	if !found {
//	    debug = false
//	}
//
// Values are never cached; every call observes the live process environment.
package env
