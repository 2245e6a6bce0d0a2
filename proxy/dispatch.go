package proxy

// Dispatch runs one intercepted call through the hook protocol:
//
//	before -> (around | original) -> after        on success
//	before -> (around | original) -> on_exception on failure
//
// A failure in Before skips every later stage except OnException, which is
// notified as for any other failed call. Errors from Before or from the call
// stage are returned by identity. An error from After is returned as is and
// does not reach OnException.
//
// Panics raised by Before, Around or the original method are reported to
// OnException as *PanicError and then re-raised with the original value.
func Dispatch(cfg Config, call *Call, original Proceed) ([]any, error) {
	if cfg.Before != nil {
		if err := guard(cfg.OnException, call, func() error { return cfg.Before(call) }); err != nil {
			return nil, err
		}
	}

	var results []any
	err := guard(cfg.OnException, call, func() error {
		var callErr error
		if cfg.Around != nil {
			results, callErr = cfg.Around(call, original)
		} else {
			results, callErr = original()
		}
		return callErr
	})
	if err != nil {
		return results, err
	}

	if cfg.After != nil {
		if err := cfg.After(call, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// guard runs step and reports its failure to onException exactly once.
func guard(onException OnExceptionFunc, call *Call, step func() error) (err error) {
	if onException == nil {
		return step()
	}

	reported := false
	defer func() {
		if r := recover(); r != nil {
			if !reported {
				reported = true
				onException(call, &PanicError{Method: call.Method, Value: r})
			}
			panic(r)
		}
	}()

	if err = step(); err != nil {
		reported = true
		onException(call, err)
	}
	return err
}
