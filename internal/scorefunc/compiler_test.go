package scorefunc

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Reduce(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		values []int
		want   int
	}{
		{
			name:   "empty expression sums the list",
			expr:   "",
			values: []int{10, 20, 30},
			want:   60,
		},
		{
			name:   "empty expression on empty list is zero",
			expr:   "",
			values: nil,
			want:   0,
		},
		{
			name:   "max keeps the largest values",
			expr:   "max2",
			values: []int{100, 300, 200},
			want:   500,
		},
		{
			name:   "max on a shorter list is a plain sum",
			expr:   "max3",
			values: []int{10, 20},
			want:   30,
		},
		{
			name:   "min keeps the smallest values",
			expr:   "min2",
			values: []int{100, 300, 200},
			want:   300,
		},
		{
			name:   "pad fills to length before the terminal sum",
			expr:   "pad5with0",
			values: []int{10, 20},
			want:   30,
		},
		{
			name:   "pad with nonzero fill contributes to the sum",
			expr:   "pad4with100",
			values: []int{50, 50},
			want:   300,
		},
		{
			name:   "pad is a no-op at or above the target length",
			expr:   "pad2with100",
			values: []int{10, 20, 30},
			want:   60,
		},
		{
			name:   "average floors the mean",
			expr:   "average",
			values: []int{100, 101},
			want:   100,
		},
		{
			name:   "newest keeps the most recent rounds",
			expr:   "newest2",
			values: []int{100, 200, 300},
			want:   500,
		},
		{
			name:   "oldest keeps the earliest rounds",
			expr:   "oldest2",
			values: []int{100, 200, 300},
			want:   300,
		},
		{
			name:   "stages chain left to right",
			expr:   "newest4 -> max2",
			values: []int{900, 100, 200, 300, 400},
			want:   700,
		},
		{
			name:   "then is connective text, not a stage",
			expr:   "max4 then pad4with0 then sum",
			values: []int{100, 200},
			want:   300,
		},
		{
			name:   "explicit sum before the implicit one changes nothing",
			expr:   "sum",
			values: []int{1, 2, 3},
			want:   6,
		},
		{
			name:   "unknown stage is dropped in lenient mode",
			expr:   "median3 -> max2",
			values: []int{100, 300, 200},
			want:   500,
		},
		{
			name:   "stage names are case-insensitive",
			expr:   "Max2",
			values: []int{100, 300, 200},
			want:   500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, err := Compile(tt.expr, ModeLenient)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pipeline.Reduce(tt.values))
		})
	}
}

func TestCompile_Strict(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "valid expression", expr: "max4 -> pad20with0", wantErr: false},
		{name: "connective then is accepted", expr: "max4 then sum", wantErr: false},
		{name: "unknown stage fails", expr: "median3", wantErr: true},
		{name: "misspelled parameter fails", expr: "pad20and0", wantErr: true},
		{name: "bare number fails", expr: "max 4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr, ModeStrict)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownStage)
			var malformed *MalformedExpressionError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestCompile_ReduceDoesNotMutateInput(t *testing.T) {
	values := []int{300, 100, 200}
	pipeline := MustCompile("max2", ModeLenient)

	_ = pipeline.Reduce(values)

	assert.Equal(t, []int{300, 100, 200}, values)
}

func TestCompile_Deterministic(t *testing.T) {
	const expr = "max4 -> pad4with0 -> average"
	values := []int{500, 100, 400, 300, 200}

	first := MustCompile(expr, ModeLenient)
	second := MustCompile(expr, ModeLenient)

	assert.Equal(t, first.Stages(), second.Stages())
	assert.Equal(t, first.Reduce(values), second.Reduce(values))
}

func TestCompiler_Cache(t *testing.T) {
	compiler := NewCompiler()

	first, err := compiler.Compile("max3", ModeLenient)
	require.NoError(t, err)
	second, err := compiler.Compile("max3", ModeLenient)
	require.NoError(t, err)

	assert.Same(t, first, second, "second compilation should come from the cache")

	strict, err := compiler.Compile("max3", ModeStrict)
	require.NoError(t, err)
	assert.NotSame(t, first, strict, "modes cache independently")
}

func TestCompiler_StrictError(t *testing.T) {
	compiler := NewCompiler()

	_, err := compiler.Compile("bogus9", ModeStrict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestCompiler_ConcurrentCompile(t *testing.T) {
	compiler := NewCompiler()

	var wg sync.WaitGroup
	pipelines := make([]*Pipeline, 16)
	for i := range pipelines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := compiler.Compile("max4 -> sum", ModeLenient)
			if err == nil {
				pipelines[i] = p
			}
		}(i)
	}
	wg.Wait()

	for i, p := range pipelines {
		require.NotNil(t, p, "goroutine %d failed", i)
		assert.Same(t, pipelines[0], p)
	}
}

func TestStageKind_String(t *testing.T) {
	kinds := []StageKind{StageMax, StageMin, StagePad, StageSum, StageAverage, StageNewest, StageOldest}
	want := []string{"max", "min", "pad", "sum", "average", "newest", "oldest"}
	for i, kind := range kinds {
		assert.Equal(t, want[i], kind.String())
	}
	assert.Equal(t, "unknown", StageKind(99).String())
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{6, 3, 2},
		{-6, 3, -2},
		{1, 2, 0},
		{-1, 2, -1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_div_%d", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, floorDiv(tt.a, tt.b))
		})
	}
}
