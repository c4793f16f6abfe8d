// Package metrics exports Prometheus counters for the custody operations.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"wallet-custody/internal/core/domain"
	"wallet-custody/internal/core/ports"
	"wallet-custody/pkg/apperror"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet_custody"

// Operation label values.
const (
	opCreateWallet     = "create_wallet"
	opGetBalance       = "get_balance"
	opWithdraw         = "withdraw"
	opListTransactions = "list_transactions"
)

// Collector holds the custody metrics.
type Collector struct {
	ops       *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	withdrawn prometheus.Counter
}

// NewCollector creates the custody metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Custody operations by outcome; result is ok or the error code.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of custody operations, key derivation included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		withdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawn_eth_total",
			Help:      "ETH broadcast in accepted withdrawals.",
		}),
	}

	for _, col := range []prometheus.Collector{c.ops, c.duration, c.withdrawn} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Instrument wraps svc so every call is counted and timed.
func (c *Collector) Instrument(svc ports.CustodyService) ports.CustodyService {
	return &instrumentedCustody{next: svc, c: c}
}

func (c *Collector) observe(op string, start time.Time, err error) {
	c.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	c.ops.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}

type instrumentedCustody struct {
	next ports.CustodyService
	c    *Collector
}

func (s *instrumentedCustody) CreateWallet(ctx context.Context, userID, password string) (*domain.WalletInfo, error) {
	start := time.Now()
	info, err := s.next.CreateWallet(ctx, userID, password)
	s.c.observe(opCreateWallet, start, err)
	return info, err
}

func (s *instrumentedCustody) GetBalance(ctx context.Context, userID string) (*domain.WalletInfo, error) {
	start := time.Now()
	info, err := s.next.GetBalance(ctx, userID)
	s.c.observe(opGetBalance, start, err)
	return info, err
}

func (s *instrumentedCustody) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*ports.WithdrawResult, error) {
	start := time.Now()
	res, err := s.next.Withdraw(ctx, req)
	s.c.observe(opWithdraw, start, err)
	// A ledger failure still means the funds left.
	if res != nil {
		s.c.withdrawn.Add(req.Amount.InexactFloat64())
	}
	return res, err
}

func (s *instrumentedCustody) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.TransactionRecord, error) {
	start := time.Now()
	recs, err := s.next.ListTransactions(ctx, userID, limit)
	s.c.observe(opListTransactions, start, err)
	return recs, err
}
