package proxy

// Chain composes several Configs into one, unlike Merge which overwrites.
//
//   - Before hooks run in order; the first error stops the chain.
//   - Around hooks nest with the first Config outermost.
//   - After hooks run in order; the first error stops the chain.
//   - Every OnException hook is notified, in order.
//
// Empty Configs are skipped. Chain of a single Config returns it unchanged.
func Chain(cfgs ...Config) Config {
	var befores []BeforeFunc
	var arounds []AroundFunc
	var afters []AfterFunc
	var onExceptions []OnExceptionFunc
	for _, c := range cfgs {
		if c.Before != nil {
			befores = append(befores, c.Before)
		}
		if c.Around != nil {
			arounds = append(arounds, c.Around)
		}
		if c.After != nil {
			afters = append(afters, c.After)
		}
		if c.OnException != nil {
			onExceptions = append(onExceptions, c.OnException)
		}
	}

	var out Config
	switch len(befores) {
	case 0:
	case 1:
		out.Before = befores[0]
	default:
		out.Before = func(c *Call) error {
			for _, fn := range befores {
				if err := fn(c); err != nil {
					return err
				}
			}
			return nil
		}
	}

	switch len(arounds) {
	case 0:
	case 1:
		out.Around = arounds[0]
	default:
		out.Around = func(c *Call, proceed Proceed) ([]any, error) {
			return nestArounds(arounds, c, proceed)()
		}
	}

	switch len(afters) {
	case 0:
	case 1:
		out.After = afters[0]
	default:
		out.After = func(c *Call, results []any) error {
			for _, fn := range afters {
				if err := fn(c, results); err != nil {
					return err
				}
			}
			return nil
		}
	}

	switch len(onExceptions) {
	case 0:
	case 1:
		out.OnException = onExceptions[0]
	default:
		out.OnException = func(c *Call, err error) {
			for _, fn := range onExceptions {
				fn(c, err)
			}
		}
	}
	return out
}

// nestArounds wraps proceed from the innermost around outwards.
func nestArounds(arounds []AroundFunc, c *Call, proceed Proceed) Proceed {
	next := proceed
	for i := len(arounds) - 1; i >= 0; i-- {
		fn, inner := arounds[i], next
		next = func() ([]any, error) { return fn(c, inner) }
	}
	return next
}
