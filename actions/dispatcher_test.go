package actions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDispatcher_RegistersBuiltins(t *testing.T) {
	d, err := NewDispatcher(WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{SetWorkspace}, d.Names())
}

func TestDispatcher_UnknownAction(t *testing.T) {
	d, err := NewDispatcher()
	require.NoError(t, err)

	res := d.Handle(context.Background(), Action{Name: "launch"})
	assert.False(t, res.Success)
	assert.Equal(t, "launch", res.Action)
	assert.Contains(t, res.Error, ErrUnknownAction.Error())
}

func TestDispatcher_Register(t *testing.T) {
	d, err := NewDispatcher()
	require.NoError(t, err)

	assert.ErrorIs(t, d.Register(Search, nil), ErrHandlerRequired)

	var gotMeta map[string]string
	require.NoError(t, d.Register(Search, func(_ context.Context, input any, md map[string]string) (any, error) {
		gotMeta = md
		q, err := Input[string](Search, input)
		if err != nil {
			return nil, err
		}
		return "found " + q, nil
	}))
	assert.Equal(t, []string{Search, SetWorkspace}, d.Names())

	res := d.Handle(context.Background(), Action{Name: Search, Input: "mills", Metadata: map[string]string{"k": "v"}})
	assert.Equal(t, Result{Success: true, Action: Search, Result: "found mills"}, res)
	assert.Equal(t, "v", gotMeta["k"])

	res = d.Handle(context.Background(), Action{Name: Search, Input: 42})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "search expects string, got int")
}

func TestDispatcher_HandlerErrorBecomesResult(t *testing.T) {
	d, err := NewDispatcher()
	require.NoError(t, err)
	require.NoError(t, d.Register(Ask, func(context.Context, any, map[string]string) (any, error) {
		return nil, errors.New("model offline")
	}))

	res := d.Handle(context.Background(), Action{Name: Ask, Input: "why?"})
	assert.Equal(t, Result{Success: false, Action: Ask, Error: "model offline"}, res)
}

func TestSetWorkspace(t *testing.T) {
	d, err := NewDispatcher()
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "a", "b")
	res := d.Handle(context.Background(), Action{Name: SetWorkspace, Input: target})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, Workspace{Path: target, Exists: true}, res.Result)
	assert.DirExists(t, target)

	res = d.Handle(context.Background(), Action{Name: SetWorkspace, Input: []string{target}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, ErrValidation.Error())

	res = d.Handle(context.Background(), Action{Name: SetWorkspace, Input: " "})
	assert.False(t, res.Success)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/papers")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "papers"), got)

	got, err = ExpandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandPath("relative")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestInput(t *testing.T) {
	v, err := Input[int]("x", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = Input[int]("x", "3")
	assert.ErrorIs(t, err, ErrValidation)
}
