package pathutil

import (
	"testing"
)

// BenchmarkNormalizePath benchmarks the path normalization function.
func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"/send/3yZe7d2Vqtz",
		"/send/5HueCGU8rMjx?text=hi",
		"/user",
		"/user/reset_key",
		"/wechat",
		"/health",
		"/metrics",
		"/unknown/path/123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(paths[i%len(paths)])
	}
}

// BenchmarkNormalizePath_Parallel measures contention on the shared patterns.
func BenchmarkNormalizePath_Parallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = NormalizePath("/send/3yZe7d2Vqtz")
		}
	})
}
