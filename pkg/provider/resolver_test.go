package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/weiche-dev/weiche/pkg/api"
)

// countingDriver is a test driver that records credential checks.
type countingDriver struct {
	MockDriver
	validateCalls int
	validateRes   ValidationResult
}

func (d *countingDriver) ValidateCredentials(ctx context.Context) ValidationResult {
	d.validateCalls++
	return d.validateRes
}

func newTestResolver(t *testing.T, configs map[string]Config, def string) *Resolver {
	t.Helper()
	return NewResolver(NewRegistry(), configs, def)
}

func TestResolveMemoizesHandle(t *testing.T) {
	r := newTestResolver(t, map[string]Config{
		"local": {Kind: KindMock},
	}, "")

	first, err := r.Resolve("local")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve("local")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if first != second {
		t.Error("Resolve returned two different handles for the same name without Refresh")
	}
}

func TestResolveUnknownProviderListsKnownNames(t *testing.T) {
	r := NewResolver(NewRegistry(), map[string]Config{
		"alpha": {Kind: KindMock},
		"beta":  {Kind: KindMock},
	}, "")
	r.Registry().Register("gamma", Descriptor{Kind: KindMock})

	_, err := r.Resolve("nonexistent")
	var nf *api.ProviderNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Resolve(nonexistent) = %v, want *api.ProviderNotFoundError", err)
	}
	if nf.Name != "nonexistent" {
		t.Errorf("Name = %q, want %q", nf.Name, "nonexistent")
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(nf.Known) != len(want) {
		t.Fatalf("Known = %v, want %v", nf.Known, want)
	}
	for i := range want {
		if nf.Known[i] != want[i] {
			t.Errorf("Known[%d] = %q, want %q", i, nf.Known[i], want[i])
		}
	}
}

func TestCustomCreatorTakesPrecedenceAndIsCached(t *testing.T) {
	r := newTestResolver(t, map[string]Config{
		// Config says mock, but the creator must win.
		"custom": {Kind: KindMock, DefaultModel: "m1"},
	}, "")

	creations := 0
	r.Registry().Extend("custom", func(cfg Config) (Driver, error) {
		creations++
		if cfg.Provider != "custom" {
			t.Errorf("creator received Provider %q, want %q", cfg.Provider, "custom")
		}
		if cfg.DefaultModel != "m1" {
			t.Errorf("creator received DefaultModel %q, want merged config", cfg.DefaultModel)
		}
		d := NewMockDriver(cfg)
		d.Reply = "from creator"
		return d, nil
	})

	d, err := r.Resolve("custom")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	resp, err := d.SendMessage(context.Background(), &api.Message{Content: "hi"}, SendOptions{})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if resp.Content != "from creator" {
		t.Errorf("Content = %q, want the creator-built driver", resp.Content)
	}

	r.Resolve("custom")
	if creations != 1 {
		t.Errorf("creator invoked %d times, want 1 (memoized)", creations)
	}
}

func TestCreatorFailureSurfacesAsProviderError(t *testing.T) {
	r := newTestResolver(t, nil, "")
	cause := errors.New("bad credentials file")
	r.Registry().Extend("broken", func(Config) (Driver, error) {
		return nil, cause
	})

	_, err := r.Resolve("broken")
	var pe *api.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Resolve(broken) = %v, want *api.ProviderError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause not preserved")
	}
}

func TestRefreshForcesRecreation(t *testing.T) {
	r := newTestResolver(t, nil, "")
	creations := 0
	r.Registry().Extend("p", func(cfg Config) (Driver, error) {
		creations++
		return NewMockDriver(cfg), nil
	})

	r.Resolve("p")
	r.Resolve("p")
	if creations != 1 {
		t.Fatalf("creations = %d before refresh, want 1", creations)
	}

	r.Refresh("p")
	r.Resolve("p")
	if creations != 2 {
		t.Errorf("creations = %d after refresh, want 2", creations)
	}

	// Refreshing an uncached name must not error or panic.
	r.Refresh("never-resolved")

	r.RefreshAll()
	r.Resolve("p")
	if creations != 3 {
		t.Errorf("creations = %d after RefreshAll, want 3", creations)
	}
}

func TestResolveEmptyNameUsesDefault(t *testing.T) {
	r := newTestResolver(t, map[string]Config{
		"primary": {Kind: KindMock, DefaultModel: "primary-model"},
	}, "primary")

	d, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") failed: %v", err)
	}
	if d.Name() != "primary" {
		t.Errorf("Name() = %q, want %q", d.Name(), "primary")
	}
}

func TestResolveEmptyNameWithoutDefaultFallsBackToMock(t *testing.T) {
	r := newTestResolver(t, nil, "")

	d, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") failed: %v", err)
	}
	if d.Name() != "mock" {
		t.Errorf("fallback driver name = %q, want %q", d.Name(), "mock")
	}

	again, _ := r.Resolve("")
	if d != again {
		t.Error("fallback driver should be a stable singleton")
	}
}

func TestLastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register("p", Descriptor{Kind: "first_kind"})
	reg.Register("p", Descriptor{Kind: KindMock, MaxTokens: 4096})

	desc, ok := reg.Descriptor("p")
	if !ok {
		t.Fatal("descriptor missing after registration")
	}
	if desc.Kind != KindMock || desc.MaxTokens != 4096 {
		t.Errorf("descriptor = %+v, want the second registration", desc)
	}

	// Resolution before any caching reflects the latest descriptor kind.
	r := NewResolver(reg, nil, "")
	if _, err := r.Resolve("p"); err != nil {
		t.Fatalf("Resolve after override failed: %v", err)
	}
}

func TestConcurrentFirstResolutionConstructsOnce(t *testing.T) {
	r := newTestResolver(t, nil, "")
	var mu sync.Mutex
	creations := 0
	r.Registry().Extend("shared", func(cfg Config) (Driver, error) {
		mu.Lock()
		creations++
		mu.Unlock()
		return NewMockDriver(cfg), nil
	})

	var wg sync.WaitGroup
	drivers := make([]Driver, 16)
	for i := range drivers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := r.Resolve("shared")
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
				return
			}
			drivers[i] = d
		}(i)
	}
	wg.Wait()

	if creations != 1 {
		t.Errorf("driver constructed %d times under concurrent resolution, want 1", creations)
	}
	for i := 1; i < len(drivers); i++ {
		if drivers[i] != drivers[0] {
			t.Fatal("concurrent Resolve returned different handles")
		}
	}
}

func TestValidateNeverReturnsError(t *testing.T) {
	r := newTestResolver(t, nil, "")

	// Unknown provider degrades to an invalid result.
	res := r.Validate(context.Background(), "missing")
	if res.Valid {
		t.Error("Validate(missing) reported valid")
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0], "missing") {
		t.Errorf("Errors = %v, want a message naming the provider", res.Errors)
	}

	// A failing credential check degrades, not errors.
	failing := &countingDriver{validateRes: ValidationResult{Errors: []string{"401 unauthorized"}}}
	r.Registry().Extend("badcreds", func(Config) (Driver, error) { return failing, nil })

	res = r.Validate(context.Background(), "badcreds")
	if res.Valid {
		t.Error("Validate(badcreds) reported valid")
	}
	if failing.validateCalls != 1 {
		t.Errorf("credential check invoked %d times, want 1", failing.validateCalls)
	}
}

func TestValidateRecoversFromPanickingDriver(t *testing.T) {
	r := newTestResolver(t, nil, "")
	r.Registry().Extend("volatile", func(cfg Config) (Driver, error) {
		return &panickyDriver{}, nil
	})

	res := r.Validate(context.Background(), "volatile")
	if res.Valid {
		t.Error("panicking credential check reported valid")
	}
	if len(res.Errors) == 0 {
		t.Error("expected a structured error from the recovered panic")
	}
}

// panickyDriver panics on credential checks.
type panickyDriver struct{ MockDriver }

func (*panickyDriver) ValidateCredentials(context.Context) ValidationResult {
	panic("driver exploded")
}
