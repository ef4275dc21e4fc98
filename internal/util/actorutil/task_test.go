package actorutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundTaskSuccessValue(t *testing.T) {

	value := 7
	var got int
	NewBackgroundTask(nil, func() (*int, error) {
		return &value, nil
	}).OnSuccess(func(v int) {
		got = v
	}).Run()

	assert.Equal(t, 7, got)
}

func TestBackgroundTaskRecoverValue(t *testing.T) {

	var recovered error
	var got int
	NewBackgroundTask(nil, func() (*int, error) {
		return nil, errors.New("vendor unreachable")
	}).Recover(func(err error) int {
		recovered = err
		return 42
	}).OnSuccess(func(v int) {
		got = v
	}).Run()

	// the recovered value must reach OnSuccess, not the zero value
	assert.ErrorContains(t, recovered, "vendor unreachable")
	assert.Equal(t, 42, got)
}

func TestBackgroundTaskOnError(t *testing.T) {

	var got error
	called := false
	NewBackgroundTask(nil, func() (*int, error) {
		return nil, errors.New("boom")
	}).OnError(func(err error) {
		got = err
	}).OnSuccess(func(int) {
		called = true
	}).Run()

	assert.ErrorContains(t, got, "boom")
	assert.False(t, called, "OnSuccess must not fire on the error path")
}
