package oml

import (
	"fmt"
	"strings"
	"testing"
)

func benchmarkConsumption(n int) string {
	var sb strings.Builder
	sb.WriteString(header)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "0.0 1 %d %d %d 0.%03d 3.3 0.1\n", i, 1400000000+i/1000, (i%1000)*1000, i%1000)
	}
	return sb.String()
}

func BenchmarkLoader_Read(b *testing.B) {
	content := benchmarkConsumption(10000)
	l, err := LoaderFor(Consumption)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(content)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := l.Read(strings.NewReader(content), ""); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkClock(b *testing.B) {
	table, err := Load(strings.NewReader(benchmarkConsumption(10000)), Consumption, ConsumptionMeasures...)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Clock(table); err != nil {
			b.Fatal(err)
		}
	}
}
