package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	accountmodel "token-pay-api/internal/model/account"
	ledgermodel "token-pay-api/internal/model/ledger"

	"token-pay-api/internal/constant"
)

type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]*ledgermodel.Transaction

	getErr     error
	claimErr   error
	successErr error
	panicGet   bool
	writes     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]*ledgermodel.Transaction)}
}

func (f *fakeLedger) put(orderNo, tradeStatus, syncStatus string, p ledgermodel.CreditParam) {
	f.putRaw(orderNo, tradeStatus, syncStatus, p.Encode())
}

func (f *fakeLedger) putRaw(orderNo, tradeStatus, syncStatus, param string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[orderNo] = &ledgermodel.Transaction{
		OrderNo:     orderNo,
		UserID:      "u-1",
		TradeStatus: tradeStatus,
		SyncStatus:  syncStatus,
		Param:       param,
	}
}

func (f *fakeLedger) row(orderNo string) ledgermodel.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[orderNo]
}

func (f *fakeLedger) GetTransactionByOrderNumber(_ context.Context, orderNo string) (*ledgermodel.Transaction, error) {
	if f.panicGet {
		panic("ledger driver bug")
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[orderNo]
	if !ok || t.TradeStatus != constant.TradeStatusSuccess {
		return nil, fmt.Errorf("order %s: %w", orderNo, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeLedger) ClaimSync(_ context.Context, orderNo string, lease time.Duration) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[orderNo]
	if !ok || t.TradeStatus != constant.TradeStatusSuccess {
		return false, nil
	}
	now := time.Now()
	switch t.SyncStatus {
	case constant.SyncStatusUnset, constant.SyncStatusFailed:
	case constant.SyncStatusProcessing:
		if t.SyncAttemptedAt != nil && now.Sub(*t.SyncAttemptedAt) < lease {
			return false, nil
		}
	default:
		return false, nil
	}
	t.SyncStatus = constant.SyncStatusProcessing
	t.SyncAttemptedAt = &now
	return true, nil
}

func (f *fakeLedger) UpdateTransactionSyncStatus(_ context.Context, orderNo, status string, fields SyncFields) error {
	if status == constant.SyncStatusSuccess && f.successErr != nil {
		return f.successErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[orderNo]
	if !ok {
		return nil
	}
	if len(fields.From) > 0 {
		match := false
		for _, s := range fields.From {
			if s == t.SyncStatus {
				match = true
			}
		}
		if !match {
			return nil
		}
	}
	f.writes++
	at := fields.At
	t.SyncStatus = status
	t.SyncAttemptedAt = &at
	if status == constant.SyncStatusSuccess {
		t.SyncedAt = &at
		t.SyncError = ""
	} else {
		t.SyncError = fields.Error
	}
	return nil
}

type fakeBalance struct {
	mu       sync.Mutex
	balances map[string]int64
	credits  map[string]bool

	readErr  error
	writeErr error
	// conflicts 次数内的写入返回 ErrBalanceConflict
	conflicts int
	// blockRead 读余额时阻塞到 ctx 结束
	blockRead bool
	panicRead bool
	calls     int
}

func newFakeBalance() *fakeBalance {
	return &fakeBalance{balances: make(map[string]int64), credits: make(map[string]bool)}
}

func (f *fakeBalance) set(userID string, v int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] = v
}

func (f *fakeBalance) get(userID string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.balances[userID]
	return v, ok
}

func (f *fakeBalance) GetUserBalance(ctx context.Context, userID string) (*accountmodel.UserBalance, error) {
	f.mu.Lock()
	f.calls++
	block := f.blockRead
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.panicRead {
		panic("balance driver bug")
	}
	if f.readErr != nil {
		return nil, f.readErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.balances[userID]
	if !ok {
		return nil, nil
	}
	return &accountmodel.UserBalance{UserID: userID, TokenBalance: v}, nil
}

func (f *fakeBalance) write(userID string, create bool, expected, newBalance int64, orderNo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		return ErrBalanceConflict
	}
	if f.credits[orderNo] {
		return ErrCreditExists
	}
	cur, ok := f.balances[userID]
	if create && ok {
		return ErrBalanceConflict
	}
	if !create && (!ok || cur != expected) {
		return ErrBalanceConflict
	}
	f.balances[userID] = newBalance
	f.credits[orderNo] = true
	return nil
}

func (f *fakeBalance) CreateUserBalance(_ context.Context, userID string, initial int64, orderNo string) error {
	return f.write(userID, true, 0, initial, orderNo)
}

func (f *fakeBalance) UpdateUserBalance(_ context.Context, userID string, expected, newBalance int64, orderNo string) error {
	return f.write(userID, false, expected, newBalance, orderNo)
}

func (f *fakeBalance) HasCredit(_ context.Context, orderNo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.credits[orderNo], nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	acquired int
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	l.acquired++
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []any
}

func (p *recordingPublisher) Publish(_ string, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type recordingAlerter struct {
	mu     sync.Mutex
	titles []string
}

func (a *recordingAlerter) Alert(_, title, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.titles = append(a.titles, title)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.titles)
}
