package finance

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"budgetbuddy/internal/apiclient"
	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/testutil/fakebackend"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFetcher(t *testing.T, handler http.HandlerFunc, opts ...apiclient.Option) (*Fetcher, *atomic.Int64) {
	t.Helper()
	calls := &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	api, err := apiclient.New(srv.URL, opts...)
	require.NoError(t, err)
	return NewFetcher(api, nil, nil), calls
}

func TestFetchTransactions_Success(t *testing.T) {
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`[{"id":1,"type":"income","amount":100,"description":"salary","date":"2025-07-01"}]`))
	})

	txs, err := f.FetchTransactions(context.Background(), "abc123", FetchOptions{})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, int64(1), tx.ID)
	assert.Equal(t, models.TransactionIncome, tx.Type)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(100)), "amount %s", tx.Amount)
	assert.Equal(t, "salary", tx.Description)
	assert.Equal(t, "2025-07-01", tx.Date)
	assert.Nil(t, tx.CategoryID)
}

func TestFetchTransactions_PreservesOrderAndFields(t *testing.T) {
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":9,"type":"expense","amount":12.35,"description":"b","date":"2025-07-03","category_id":4,"tags":["x"],"note":"n"},
			{"id":2,"type":"income","amount":"0.10","description":"a","date":"2025-07-01"},
			{"id":9,"type":"expense","amount":12.35,"description":"b","date":"2025-07-03","category_id":4}
		]`))
	})

	txs, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
	require.NoError(t, err)
	require.Len(t, txs, 3, "duplicates are kept")

	assert.Equal(t, []int64{9, 2, 9}, []int64{txs[0].ID, txs[1].ID, txs[2].ID}, "server order is kept")
	require.NotNil(t, txs[0].CategoryID)
	assert.Equal(t, int64(4), *txs[0].CategoryID)
	assert.Equal(t, []string{"x"}, txs[0].Tags)
	assert.Equal(t, "n", txs[0].Note)
	assert.Equal(t, "12.35", txs[0].Amount.String())
	assert.Equal(t, "0.1", txs[1].Amount.String())
}

func TestFetchTransactions_EmptyAndNull(t *testing.T) {
	for _, body := range []string{`[]`, `null`} {
		f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		txs, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
		require.NoError(t, err, "body %s", body)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)
	}
}

func TestFetchTransactions_ServerErrorCarriesRawBody(t *testing.T) {
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	})

	txs, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
	assert.Nil(t, txs)
	require.Error(t, err)
	assert.Equal(t, apierr.KindFetch, apierr.KindOf(err))
	assert.Equal(t, "internal error", err.Error())
}

func TestFetchTransactions_ServerErrorWithEmptyBody(t *testing.T) {
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
	require.Error(t, err)
	assert.Equal(t, apierr.KindFetch, apierr.KindOf(err))
	assert.Equal(t, "Could not load transactions", err.Error())
}

// transactionsJSON renders a valid array of n transactions.
func transactionsJSON(n int) []byte {
	item := []byte(`{"id":1,"type":"income","amount":1,"description":"x","date":"2025-07-01"}`)
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func TestFetchTransactions_LargeListUnderLimit(t *testing.T) {
	n := apiclient.MaxBodyBytes / 80
	body := transactionsJSON(n)
	require.LessOrEqual(t, len(body), apiclient.MaxBodyBytes)

	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})

	txs, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, txs, n)
}

func TestFetchTransactions_OversizedListIsRejected(t *testing.T) {
	body := transactionsJSON(apiclient.MaxBodyBytes/70 + 1000)
	require.Greater(t, len(body), apiclient.MaxBodyBytes)

	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})

	txs, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
	assert.Nil(t, txs)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrResponseTooLarge)
	assert.Equal(t, apierr.KindUnknown, apierr.KindOf(err))
	assert.Equal(t, i18n.New(i18n.Parse("en")).T(i18n.KeyResponseTooLarge), err.Error())
}

func TestFetchTransactions_MissingToken(t *testing.T) {
	f, calls := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := f.FetchTransactions(context.Background(), "", FetchOptions{})
	assert.Equal(t, apierr.KindMissingToken, apierr.KindOf(err))
	assert.Zero(t, calls.Load())
}

func TestFetchTransactions_MalformedBodyIsAllOrNothing(t *testing.T) {
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"amount":1},{"id":"two"`))
	})

	txs, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
	assert.Nil(t, txs, "nothing partial is returned")
	assert.Equal(t, apierr.KindUnknown, apierr.KindOf(err))
}

func TestFetchTransactions_Timeout(t *testing.T) {
	release := make(chan struct{})
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, apiclient.WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := f.FetchTransactions(context.Background(), "t", FetchOptions{})
	assert.Equal(t, apierr.KindConnectivity, apierr.KindOf(err))
}

func TestFetchTransactions_TypeFilter(t *testing.T) {
	f, calls := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "expense", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := f.FetchTransactions(context.Background(), "t", FetchOptions{Type: models.TransactionExpense})
	require.NoError(t, err)

	_, err = f.FetchTransactions(context.Background(), "t", FetchOptions{Type: "transfer"})
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Equal(t, int64(1), calls.Load())
}

func TestFetchTransactions_IdempotentAgainstFakeBackend(t *testing.T) {
	backend := fakebackend.Start()
	defer backend.Close()

	category := int64(3)
	backend.SetTransactions("a@b.com", []fakebackend.Transaction{
		{ID: 1, Type: "income", Amount: 100, Description: "salary", Date: "2025-07-01"},
		{ID: 2, Type: "expense", Amount: 12.5, Description: "lunch", Date: "2025-07-02", CategoryID: &category},
	})
	token, err := backend.IssueToken("a@b.com")
	require.NoError(t, err)

	api, err := apiclient.New(backend.Finance.URL)
	require.NoError(t, err)
	f := NewFetcher(api, nil, nil)

	first, err := f.FetchTransactions(context.Background(), token, FetchOptions{})
	require.NoError(t, err)
	second, err := f.FetchTransactions(context.Background(), token, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)

	incomes, err := f.FetchTransactions(context.Background(), token, FetchOptions{Type: models.TransactionIncome})
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, "salary", incomes[0].Description)

	_, err = f.FetchTransactions(context.Background(), "not-a-jwt", FetchOptions{})
	assert.Equal(t, apierr.KindFetch, apierr.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid or expired token")
}
