package models_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockedWait = 500 * time.Millisecond

// pauseFirstSubmission holds the first submission after it deleted the old
// facts, with its transaction open, until release is called.
func pauseFirstSubmission(t *testing.T) (paused <-chan struct{}, release func()) {
	t.Helper()
	pausedCh := make(chan struct{})
	releaseCh := make(chan struct{})
	var first sync.Once
	restore := models.SetAfterFactsDeleted(func(storeId int, period string) {
		isFirst := false
		first.Do(func() { isFirst = true })
		if isFirst {
			close(pausedCh)
			<-releaseCh
		}
	})
	var releaseOnce sync.Once
	release = func() { releaseOnce.Do(func() { close(releaseCh) }) }
	t.Cleanup(func() {
		release()
		restore()
	})
	return pausedCh, release
}

func submitAsync(storeId int, period string, items []*models.LineItem) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := models.SubmitReports(context.Background(), storeId, period, items)
		done <- err
	}()
	return done
}

func waitPaused(t *testing.T, paused <-chan struct{}) {
	t.Helper()
	select {
	case <-paused:
	case <-time.After(10 * time.Second):
		t.Fatal("first submission never reached the insert")
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(30 * time.Second):
		t.Fatal("operation did not finish")
		return nil
	}
}

func TestSubmitReportsSerializesWritersOfOneStore(t *testing.T) {
	testutil.OpenMySQL(t)
	store := testutil.CreateStore(t, "中野店", "2017")
	products := testutil.CreateProducts(t, "ダンボールA", "化粧箱B")
	paused, release := pauseFirstSubmission(t)

	first := submitAsync(store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 1}})
	waitPaused(t, paused)
	second := submitAsync(store.ID, testPeriod, []*models.LineItem{{ProductId: products[1].ID, Quantity: 2}})

	select {
	case err := <-second:
		t.Fatalf("second submission finished while the first was still open: %v", err)
	case <-time.After(blockedWait):
	}

	release()
	require.NoError(t, waitDone(t, first))
	require.NoError(t, waitDone(t, second))

	// the later writer replaced the earlier one entirely
	facts := storeFacts(t, store.ID, testPeriod)
	require.Len(t, facts, 1)
	assert.Equal(t, products[1].ID, facts[0].ProductId)
	assert.Equal(t, 2, facts[0].Quantity)
}

func TestSubmitReportsDoesNotBlockOtherStores(t *testing.T) {
	testutil.OpenMySQL(t)
	nakano := testutil.CreateStore(t, "中野店", "2017")
	shinjuku := testutil.CreateStore(t, "新宿店", "2018")
	products := testutil.CreateProducts(t, "ダンボールA")
	paused, release := pauseFirstSubmission(t)

	first := submitAsync(nakano.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 1}})
	waitPaused(t, paused)
	other := submitAsync(shinjuku.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 4}})
	require.NoError(t, waitDone(t, other))

	release()
	require.NoError(t, waitDone(t, first))
	assert.Len(t, storeFacts(t, nakano.ID, testPeriod), 1)
	assert.Len(t, storeFacts(t, shinjuku.ID, testPeriod), 1)
}

func TestClosePeriodWaitsForOpenSubmissions(t *testing.T) {
	testutil.OpenMySQL(t)
	store := testutil.CreateStore(t, "中野店", "2017")
	admin := testutil.CreateAdmin(t)
	products := testutil.CreateProducts(t, "ダンボールA")
	paused, release := pauseFirstSubmission(t)

	submitted := submitAsync(store.ID, testPeriod, []*models.LineItem{{ProductId: products[0].ID, Quantity: 3}})
	waitPaused(t, paused)

	closed := make(chan error, 1)
	go func() {
		_, err := models.ClosePeriod(testutil.SessionContext(admin), testPeriod)
		closed <- err
	}()
	select {
	case err := <-closed:
		t.Fatalf("period closed while a submission that saw it open was uncommitted: %v", err)
	case <-time.After(blockedWait):
	}

	release()
	require.NoError(t, waitDone(t, submitted))
	require.NoError(t, waitDone(t, closed))
	assert.Len(t, storeFacts(t, store.ID, testPeriod), 1)

	_, err := models.SubmitReports(context.Background(), store.ID, testPeriod, nil)
	assert.True(t, errors.Is(err, models.ErrPeriodClosed), "got %v", err)
}
