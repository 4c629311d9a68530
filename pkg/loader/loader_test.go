package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/process"
	"github.com/justyntemme/framego/pkg/plugin"
)

type nopInstance struct{}

func (nopInstance) Init(string, int, int) error                          { return nil }
func (nopInstance) Configure([]frame.Descriptor, []frame.Descriptor) error { return nil }
func (nopInstance) Process(*process.Context) (plugin.Status, error)        { return plugin.StatusOK, nil }
func (nopInstance) Flush(*process.Context) (bool, error)                   { return false, nil }
func (nopInstance) Uninit()                                                 {}

func descriptor(name, version string) *plugin.Descriptor {
	return &plugin.Descriptor{
		APIVersion: plugin.APIVersion,
		Name:       name,
		Version:    version,
		Create:     func() plugin.Instance { return nopInstance{} },
		Destroy:    func(plugin.Instance) {},
	}
}

func getter(d *plugin.Descriptor) plugin.GetDescriptorFunc {
	return func() *plugin.Descriptor { return d }
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register(getter(descriptor("blur", "1.0.0")), PriorityDefault, SourceBuiltin))
	require.NoError(t, r.Register(getter(descriptor("avg", "1.0.0")), PriorityDefault, SourceBuiltin))

	d, err := r.Lookup("blur")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", d.Version)

	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("higher priority overrides", func(t *testing.T) {
		require.NoError(t, r.Register(getter(descriptor("blur", "2.0.0")), PriorityFile, "/x/blur.so"))
		d, _ := r.Lookup("blur")
		assert.Equal(t, "2.0.0", d.Version)
	})

	t.Run("lower priority is skipped", func(t *testing.T) {
		require.NoError(t, r.Register(getter(descriptor("blur", "0.1.0")), PriorityDefault, SourceBuiltin))
		d, _ := r.Lookup("blur")
		assert.Equal(t, "2.0.0", d.Version)
	})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "avg", list[0].Name)
	assert.Equal(t, "/x/blur.so", list[1].Source)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryRejectsUnusable(t *testing.T) {
	r := NewRegistry(nil)

	old := descriptor("old", "1.0.0")
	old.APIVersion = 0

	tests := []struct {
		name string
		get  plugin.GetDescriptorFunc
	}{
		{"nil function", nil},
		{"nil descriptor", func() *plugin.Descriptor { return nil }},
		{"version mismatch", getter(old)},
		{"panics", func() *plugin.Descriptor { panic("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.get, PriorityDefault, "test")
			assert.ErrorIs(t, err, ErrUnusable)
		})
	}
	assert.Equal(t, 0, r.Len())

	err := r.Register(getter(old), PriorityDefault, "test")
	assert.ErrorIs(t, err, plugin.ErrAPIVersion)
}

func TestMustRegisterPanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		MustRegister(func() *plugin.Descriptor { return nil })
	})
}

func TestSymbol(t *testing.T) {
	d := descriptor("sym", "1.0.0")
	fn := func() *plugin.Descriptor { return d }
	named := plugin.GetDescriptorFunc(fn)
	var nilFn func() *plugin.Descriptor

	for name, sym := range map[string]any{
		"func":               fn,
		"named func":         named,
		"pointer to func":    &fn,
		"pointer named func": &named,
	} {
		get, err := Symbol(sym)
		require.NoError(t, err, name)
		assert.Same(t, d, get(), name)
	}

	_, err := Symbol(&nilFn)
	assert.Error(t, err)
	_, err = Symbol(func() int { return 1 })
	assert.Error(t, err)
	_, err = Symbol("GetDescriptor")
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.so"))
	assert.ErrorIs(t, err, ErrUnusable)
}

// fakeOpener serves descriptors by file name and fails for names starting with "bad"
func fakeOpener() OpenFunc {
	return func(path string) (*plugin.Descriptor, error) {
		base := filepath.Base(path)
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		if strings.HasPrefix(base, "bad") {
			return nil, errors.New("no GetDescriptor symbol")
		}
		return descriptor(base[:len(base)-len(Extension)], "9.0.0"), nil
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"alpha.so", "beta.so", "bad.so", "notes.txt"} {
		touch(t, filepath.Join(dir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.so"), 0o755))

	l := New([]string{dir}, WithRegistry(NewRegistry(nil)), WithOpener(fakeOpener()))
	n, err := l.LoadAll()
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, ErrUnusable, "unusable units are reported, not fatal")

	for _, name := range []string{"alpha", "beta"} {
		d, err := l.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, "9.0.0", d.Version)
	}
	_, err = l.Resolve("bad")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "gamma.so"))
	l := New(nil, WithRegistry(NewRegistry(nil)), WithOpener(fakeOpener()))

	d, err := l.Resolve(filepath.Join(dir, "gamma.so"))
	require.NoError(t, err)
	assert.Equal(t, "gamma", d.Name)

	_, err = l.Resolve(filepath.Join(dir, "absent.so"))
	assert.ErrorIs(t, err, ErrUnusable)
}

func TestNewCopiesBuiltins(t *testing.T) {
	l := New(nil)
	assert.Equal(t, Builtins().Len(), l.Registry().Len())
	assert.NotSame(t, Builtins(), l.Registry())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	l := New([]string{dir}, WithRegistry(NewRegistry(nil)), WithOpener(fakeOpener()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loaded := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- l.Watch(ctx, func(path string, err error) {
			if err != nil {
				return
			}
			select {
			case loaded <- path:
			default:
			}
		})
	}()

	path := filepath.Join(dir, "late.so")
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

wait:
	for {
		select {
		case got := <-loaded:
			assert.Equal(t, path, got)
			break wait
		case <-tick.C:
			touch(t, path)
		case <-deadline:
			t.Fatal("watcher never registered the new unit")
		}
	}

	d, err := l.Resolve("late")
	require.NoError(t, err)
	assert.Equal(t, "late", d.Name)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
