package verify_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/icscript/optimized-builds/internal/verify"
)

// fakeTool writes an executable shell script so Inspect's external tool
// invocations can be exercised without a real toolchain.
func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("writing fake tool: %v", err)
	}
	return path
}

func testBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app_1.bin")
	if err := os.WriteFile(path, []byte("\x7fELF"), 0o755); err != nil {
		t.Fatalf("writing test binary: %v", err)
	}
	return path
}

func baseOptions() verify.Options {
	return verify.Options{
		SymbolSubstr: "blake2",
		ISAMarker:    "avx2",
		NarrowClass:  "ymm",
		WideClass:    "zmm",
		RefNarrow:    2018,
		RefWide:      40,
	}
}

func TestInspectFindsTargetSymbol(t *testing.T) {
	opts := baseOptions()
	opts.NMTool = fakeTool(t, "nm", `cat <<'EOF'
0000000000401000 t _ZN11blake2b_simd5avx212compress4EPh
0000000000402000 t _ZN11blake2b_simd8portable8compressEPh
0000000000403000 T main
EOF`)
	opts.ObjdumpTool = fakeTool(t, "objdump", `cat <<'EOF'
  401000: c5 fd 6f 07   vmovdqa (%rdi),%ymm0
  401004: c5 f5 d4 c8   vpaddq %ymm0,%ymm1,%ymm1
  401008: 48 89 c8      mov %rcx,%rax
EOF`)

	res := verify.Inspect(context.Background(), testBinary(t), opts)
	if !res.HasTargetSymbol {
		t.Errorf("expected target symbol, warnings: %v", res.Warnings)
	}
	if len(res.Symbols) != 1 || !strings.Contains(res.Symbols[0], "avx2") {
		t.Errorf("symbols: got %v", res.Symbols)
	}
	if res.NarrowCount != 2 {
		t.Errorf("narrow count: got %d, want 2", res.NarrowCount)
	}
	if res.WideCount != 0 {
		t.Errorf("wide count: got %d, want 0", res.WideCount)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings: got %v", res.Warnings)
	}
}

func TestInspectNoMatchingSymbols(t *testing.T) {
	opts := baseOptions()
	opts.NMTool = fakeTool(t, "nm", `echo "0000000000403000 T main"`)
	opts.ObjdumpTool = fakeTool(t, "objdump", `:`)

	res := verify.Inspect(context.Background(), testBinary(t), opts)
	if res.HasTargetSymbol {
		t.Error("expected no target symbol")
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings: got %d (%v), want exactly 1", len(res.Warnings), res.Warnings)
	}
}

func TestInspectSymbolToolFailure(t *testing.T) {
	opts := baseOptions()
	opts.NMTool = fakeTool(t, "nm", `exit 3`)
	opts.ObjdumpTool = fakeTool(t, "objdump", `:`)

	res := verify.Inspect(context.Background(), testBinary(t), opts)
	if res.HasTargetSymbol {
		t.Error("expected no target symbol after tool failure")
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings: got %v, want one tool-failure warning", res.Warnings)
	}
}

func TestInspectMissingBinary(t *testing.T) {
	res := verify.Inspect(context.Background(), filepath.Join(t.TempDir(), "missing.bin"), baseOptions())
	if res.HasTargetSymbol || res.NarrowCount != 0 || res.WideCount != 0 {
		t.Errorf("expected zeroed result, got %+v", res)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings: got %v", res.Warnings)
	}
}

func TestInspectMissingTools(t *testing.T) {
	opts := baseOptions()
	opts.NMTool = filepath.Join(t.TempDir(), "no-such-nm")
	opts.ObjdumpTool = filepath.Join(t.TempDir(), "no-such-objdump")

	res := verify.Inspect(context.Background(), testBinary(t), opts)
	if res.HasTargetSymbol || res.NarrowCount != 0 || res.WideCount != 0 {
		t.Errorf("expected zeroed result, got %+v", res)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("warnings: got %v, want one per tool", res.Warnings)
	}
}

func TestInspectOverThresholdWarning(t *testing.T) {
	opts := baseOptions()
	opts.RefNarrow = 2018
	opts.NMTool = fakeTool(t, "nm", `echo "0000000000401000 t blake2b_avx2_compress"`)
	// 25000 narrow-register lines: over the 10x threshold of 2018.
	opts.ObjdumpTool = fakeTool(t, "objdump", `i=0
while [ $i -lt 25000 ]; do
  echo "  401000: vpaddq %ymm0,%ymm1,%ymm1"
  i=$((i+1))
done`)

	res := verify.Inspect(context.Background(), testBinary(t), opts)
	if res.NarrowCount != 25000 {
		t.Fatalf("narrow count: got %d, want 25000", res.NarrowCount)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "ymm") && strings.Contains(w, "exceeds") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected over-threshold warning, got %v", res.Warnings)
	}
}

func TestInspectUnderThresholdNoWarning(t *testing.T) {
	opts := baseOptions()
	opts.NMTool = fakeTool(t, "nm", `echo "0000000000401000 t blake2b_avx2_compress"`)
	opts.ObjdumpTool = fakeTool(t, "objdump", `i=0
while [ $i -lt 5000 ]; do
  echo "  401000: vpaddq %ymm0,%ymm1,%ymm1"
  i=$((i+1))
done`)

	res := verify.Inspect(context.Background(), testBinary(t), opts)
	if res.NarrowCount != 5000 {
		t.Fatalf("narrow count: got %d, want 5000", res.NarrowCount)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings: got %v, want none (5000 <= 2018*10)", res.Warnings)
	}
}
