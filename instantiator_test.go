package resultmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type personCard struct {
	ID       int64
	Name     string
	Nickname *string
}

func TestFuncInstantiator(t *testing.T) {
	inst, err := FuncInstantiator(func(id int64, name string, nickname *string) personCard {
		return personCard{ID: id, Name: name, Nickname: nickname}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, inst.Arity)

	v, err := inst.New([]any{int32(7), []byte("Zoë"), "zo"})
	require.NoError(t, err)
	card := v.(personCard)
	assert.Equal(t, int64(7), card.ID)
	assert.Equal(t, "Zoë", card.Name)
	require.NotNil(t, card.Nickname)
	assert.Equal(t, "zo", *card.Nickname)

	v, err = inst.New([]any{int64(1), nil, nil})
	require.NoError(t, err)
	assert.Equal(t, personCard{ID: 1}, v)

	_, err = inst.New([]any{int64(1)})
	assert.ErrorContains(t, err, "expected 3 arguments")

	_, err = inst.New([]any{"seven", "a", nil})
	assert.ErrorContains(t, err, "argument 0")
}

func TestFuncInstantiator_ErrorResult(t *testing.T) {
	boom := errors.New("boom")
	inst, err := FuncInstantiator(func(name string) (personCard, error) {
		if name == "" {
			return personCard{}, boom
		}
		return personCard{Name: name}, nil
	})
	require.NoError(t, err)

	v, err := inst.New([]any{"Ana"})
	require.NoError(t, err)
	assert.Equal(t, personCard{Name: "Ana"}, v)

	_, err = inst.New([]any{""})
	assert.ErrorIs(t, err, boom)
}

func TestFuncInstantiator_Rejects(t *testing.T) {
	var nilFunc func() int
	rejected := []any{
		nil,
		42,
		nilFunc,
		func(args ...any) int { return 0 },
		func() {},
		func() (int, int) { return 0, 0 },
		func() error { return nil },
	}
	for _, fn := range rejected {
		_, err := FuncInstantiator(fn)
		assert.True(t, IsInvalidArgumentError(err), "%T", fn)
	}
}

func TestInstantiatorRegistry(t *testing.T) {
	registry := NewInstantiatorRegistry()
	require.NoError(t, registry.RegisterFunc("Card", func(name string) personCard { return personCard{Name: name} }))
	require.NoError(t, registry.Register("Pair", Instantiator{Arity: 2, New: func(args []any) (any, error) { return args, nil }}))

	assert.True(t, IsDuplicateNameError(registry.RegisterFunc("Card", func(string) personCard { return personCard{} })))
	assert.True(t, IsInvalidArgumentError(registry.Register("", Instantiator{New: func([]any) (any, error) { return nil, nil }})))
	assert.True(t, IsInvalidArgumentError(registry.Register("Empty", Instantiator{})))
	assert.True(t, IsInvalidArgumentError(registry.RegisterFunc("NotAFunc", "x")))

	assert.Equal(t, []string{"Card", "Pair"}, registry.Names())

	inst, ok := registry.Lookup("Card")
	require.True(t, ok)
	assert.Equal(t, 1, inst.Arity)

	_, ok = registry.Lookup("Unknown")
	assert.False(t, ok)
}

func TestInstantiatorRegistry_Fallback(t *testing.T) {
	registry := NewInstantiatorRegistry()
	require.NoError(t, registry.RegisterFunc("Card", func(name string) personCard { return personCard{Name: name} }))

	var asked []string
	registry.SetFallback(func(targetType string) (Instantiator, bool) {
		asked = append(asked, targetType)
		if targetType == "Ghost" {
			return Instantiator{}, false
		}
		return Instantiator{Arity: VariadicArity, New: func(args []any) (any, error) {
			return map[string]any{"type": targetType, "arguments": args}, nil
		}}, true
	})

	inst, ok := registry.Lookup("Card")
	require.True(t, ok)
	assert.Equal(t, 1, inst.Arity)

	inst, ok = registry.Lookup("Tuple")
	require.True(t, ok)
	assert.Equal(t, VariadicArity, inst.Arity)
	v, err := inst.New([]any{1, "a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "Tuple", "arguments": []any{1, "a"}}, v)

	_, ok = registry.Lookup("Ghost")
	assert.False(t, ok)
	assert.Equal(t, []string{"Tuple", "Ghost"}, asked)
	assert.Equal(t, []string{"Card"}, registry.Names())
}
