package proxy_test

import (
	"testing"

	"github.com/sghaida/oproxy/proxy"
)

func benchConfig() proxy.Config {
	return proxy.Config{
		Before: func(*proxy.Call) error { return nil },
		Around: func(_ *proxy.Call, proceed proxy.Proceed) ([]any, error) { return proceed() },
		After:  func(*proxy.Call, []any) error { return nil },
	}
}

func BenchmarkDirectCall(b *testing.B) {
	calc := NewCalculator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = calc.Add(i, 1)
	}
}

func BenchmarkInvoke_AllHooks(b *testing.B) {
	p := proxy.New(NewCalculator(), benchConfig())
	params := []string{"a", "b"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Invoke("Add", params, []any{i, 1}, func(c *Calculator) ([]any, error) {
			return []any{c.Add(i, 1)}, nil
		})
	}
}

func BenchmarkCall_NoHooks(b *testing.B) {
	p := proxy.New(NewCalculator(), proxy.Config{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Call("Add", i, 1)
	}
}

func BenchmarkCall_AllHooks(b *testing.B) {
	p := proxy.New(NewCalculator(), benchConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Call("Add", i, 1)
	}
}

func BenchmarkCall_Variadic(b *testing.B) {
	p := proxy.New(NewCalculator(), proxy.Config{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Call("Sum", 1, 2, 3, 4)
	}
}

func BenchmarkAddAspect(b *testing.B) {
	p := proxy.New(NewCalculator(), proxy.Config{})
	cfg := proxy.Config{Before: func(*proxy.Call) error { return nil }}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		proxy.AddAspect(p, cfg)
	}
}
