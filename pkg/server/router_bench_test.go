package server

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// BenchmarkRouter benchmarks body handling under the default lock policy
func BenchmarkRouter(b *testing.B) {
	b.Run("HandleRequest", func(b *testing.B) {
		benchmarkRouterHandle(b, 1)
	})

	b.Run("HandleBatch/10", func(b *testing.B) {
		benchmarkRouterHandle(b, 10)
	})

	b.Run("HandleBatch/100", func(b *testing.B) {
		benchmarkRouterHandle(b, 100)
	})

	b.Run("Unlocked/Parallel", func(b *testing.B) {
		benchmarkRouterParallel(b)
	})
}

func batchBody(n int) []byte {
	if n == 1 {
		return []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_msgs","arguments":{}}}`)
	}
	reqs := make([]string, n)
	for i := range reqs {
		reqs[i] = fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":"get_msgs","arguments":{}}}`, i)
	}
	return []byte("[" + strings.Join(reqs, ",") + "]")
}

func benchmarkRouterHandle(b *testing.B, size int) {
	router, err := NewRouter(testCatalog(nil))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	body := batchBody(size)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := router.Handle(ctx, body, ""); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkRouterParallel(b *testing.B) {
	router, err := NewRouter(testCatalog(nil), WithUseLock(false))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	body := batchBody(1)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := router.Handle(ctx, body, ""); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
