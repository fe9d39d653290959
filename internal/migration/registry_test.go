package migration

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeStep is a scriptable step for registry and runner tests.
type fakeStep struct {
	source   int
	target   int
	desc     string
	migrate  func(ctx context.Context, c *Cursor) error
	validate func(ctx context.Context, c *Cursor) (bool, error)
}

func (s fakeStep) Source() int         { return s.source }
func (s fakeStep) Target() int         { return s.target }
func (s fakeStep) Description() string { return s.desc }

func (s fakeStep) Migrate(ctx context.Context, c *Cursor) error {
	if s.migrate != nil {
		return s.migrate(ctx, c)
	}
	return nil
}

func (s fakeStep) Validate(ctx context.Context, c *Cursor) (bool, error) {
	if s.validate != nil {
		return s.validate(ctx, c)
	}
	return true, nil
}

// chain builds matching forward and revert fake steps for versions 0..max.
func chain(max int) []Step {
	var steps []Step
	for v := 0; v < max; v++ {
		steps = append(steps,
			fakeStep{source: v, target: v + 1, desc: fmt.Sprintf("up %d", v+1)},
			fakeStep{source: v + 1, target: v, desc: fmt.Sprintf("down %d", v+1)},
		)
	}
	return steps
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		wantErr bool
	}{
		{"empty set", nil, false},
		{"full chain", chain(4), false},
		{"forward only", []Step{fakeStep{source: 0, target: 1}}, false},
		{"non adjacent", []Step{fakeStep{source: 0, target: 2}}, true},
		{"negative version", []Step{fakeStep{source: -1, target: 0}}, true},
		{"duplicate forward", []Step{
			fakeStep{source: 0, target: 1},
			fakeStep{source: 0, target: 1, desc: "again"},
		}, true},
		{"duplicate revert", []Step{
			fakeStep{source: 0, target: 1},
			fakeStep{source: 1, target: 0},
			fakeStep{source: 1, target: 0, desc: "again"},
		}, true},
		{"gap in forward chain", []Step{
			fakeStep{source: 0, target: 1},
			fakeStep{source: 2, target: 3},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.steps...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewRegistry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error is %T, want *ConfigurationError", err)
				}
			}
		})
	}
}

func TestRegistryGapWrapsPathNotFound(t *testing.T) {
	_, err := NewRegistry(
		fakeStep{source: 0, target: 1},
		fakeStep{source: 2, target: 3},
	)
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("gap error = %v, want errors.Is(ErrPathNotFound)", err)
	}
}

func TestRegistryMaxVersion(t *testing.T) {
	r, err := NewRegistry(chain(4)...)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.MaxVersion(); got != 4 {
		t.Errorf("MaxVersion() = %d, want 4", got)
	}

	empty, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if got := empty.MaxVersion(); got != 0 {
		t.Errorf("empty MaxVersion() = %d, want 0", got)
	}
}

func TestRegistryPath(t *testing.T) {
	r, err := NewRegistry(chain(4)...)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		current   int
		target    int
		wantPairs [][2]int
		wantErr   bool
	}{
		{"forward full", 0, 4, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}, false},
		{"forward partial", 1, 3, [][2]int{{1, 2}, {2, 3}}, false},
		{"revert full", 4, 0, [][2]int{{4, 3}, {3, 2}, {2, 1}, {1, 0}}, false},
		{"revert partial", 3, 1, [][2]int{{3, 2}, {2, 1}}, false},
		{"no-op", 2, 2, nil, false},
		{"target above max", 0, 5, nil, true},
		{"negative target", 2, -1, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := r.Path(tt.current, tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Path(%d, %d) error = %v, wantErr %v", tt.current, tt.target, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(path) != len(tt.wantPairs) {
				t.Fatalf("Path length = %d, want %d", len(path), len(tt.wantPairs))
			}
			for i, s := range path {
				if s.Source() != tt.wantPairs[i][0] || s.Target() != tt.wantPairs[i][1] {
					t.Errorf("path[%d] = %d->%d, want %d->%d",
						i, s.Source(), s.Target(), tt.wantPairs[i][0], tt.wantPairs[i][1])
				}
			}
		})
	}
}

func TestRegistryResolveMissing(t *testing.T) {
	r, err := NewRegistry(fakeStep{source: 0, target: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(1, 0); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Resolve(1, 0) error = %v, want ErrPathNotFound", err)
	}
}

func TestStepName(t *testing.T) {
	fwd := fakeStep{source: 2, target: 3}
	if got := StepName(fwd); got != "migrate_2_to_3" {
		t.Errorf("StepName(forward) = %q", got)
	}
	rev := fakeStep{source: 3, target: 2}
	if got := StepName(rev); got != "revert_3_to_2" {
		t.Errorf("StepName(revert) = %q", got)
	}
	if !IsForward(fwd) || IsForward(rev) {
		t.Error("IsForward misclassified a step")
	}
}
