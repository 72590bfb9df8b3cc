package checkout

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/gateway"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

type fakeOrders struct {
	mu      sync.Mutex
	byID    map[string]order.Order
	writes  int
	updates []order.Status
	// beforeUpdate runs ahead of each status write, outside the lock.
	beforeUpdate func(id string)
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{byID: map[string]order.Order{}}
}

func (f *fakeOrders) Create(_ context.Context, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	f.byID[o.ID] = cloneOrder(*o)
	f.writes++
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	c := cloneOrder(o)
	return &c, nil
}

func (f *fakeOrders) List(_ context.Context) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]order.Order, 0, len(f.byID))
	for _, o := range f.byID {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeOrders) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	all, _ := f.List(ctx)
	out := []order.Order{}
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatusFrom(_ context.Context, id string, from, status order.Status) (*order.Order, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok || o.Status != from {
		return nil, nil
	}
	o.Status = status
	f.byID[id] = o
	f.writes++
	f.updates = append(f.updates, status)
	c := cloneOrder(o)
	return &c, nil
}

// set overwrites the stored status without counting a write.
func (f *fakeOrders) set(id string, status order.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.byID[id]
	o.Status = status
	f.byID[id] = o
}

func (f *fakeOrders) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	f.writes++
	return true, nil
}

func (f *fakeOrders) get(id string) order.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneOrder(f.byID[id])
}

func cloneOrder(o order.Order) order.Order {
	o.Products = append([]order.Item(nil), o.Products...)
	return o
}

type fakePayments struct {
	mu        sync.Mutex
	byOrder   map[string]payment.Payment
	createErr error
	writes    int
}

func newFakePayments() *fakePayments {
	return &fakePayments{byOrder: map[string]payment.Payment{}}
}

func (f *fakePayments) Create(_ context.Context, p *payment.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f.byOrder[p.OrderID] = clonePayment(*p)
	f.writes++
	return nil
}

func (f *fakePayments) GetByOrderID(_ context.Context, orderID string) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	c := clonePayment(p)
	return &c, nil
}

func (f *fakePayments) Update(_ context.Context, p *payment.Payment) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byOrder[p.OrderID]
	if !ok || cur.ID != p.ID {
		return nil, payment.ErrNotFound
	}
	f.byOrder[p.OrderID] = clonePayment(*p)
	f.writes++
	c := clonePayment(*p)
	return &c, nil
}

func (f *fakePayments) get(orderID string) payment.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clonePayment(f.byOrder[orderID])
}

func clonePayment(p payment.Payment) payment.Payment {
	if p.GatewayIntentID != nil {
		v := *p.GatewayIntentID
		p.GatewayIntentID = &v
	}
	if p.GatewayChargeID != nil {
		v := *p.GatewayChargeID
		p.GatewayChargeID = &v
	}
	return p
}

type fakeCart struct {
	mu      sync.Mutex
	items   map[string]map[string]int
	calls   int
	removed int64
	err     error
	// onDelete runs before each delete, outside the lock.
	onDelete func()
}

func newFakeCart() *fakeCart {
	return &fakeCart{items: map[string]map[string]int{}}
}

func (f *fakeCart) put(userID, productID string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[userID] == nil {
		f.items[userID] = map[string]int{}
	}
	f.items[userID][productID] = qty
}

func (f *fakeCart) DeleteItems(_ context.Context, userID string, productIDs []string) (int64, error) {
	if f.onDelete != nil {
		f.onDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.calls++
	var n int64
	for _, id := range productIDs {
		if _, ok := f.items[userID][id]; ok {
			delete(f.items[userID], id)
			n++
		}
	}
	f.removed += n
	return n, nil
}

func (f *fakeCart) has(userID, productID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[userID][productID]
	return ok
}

type createCall struct {
	amount   int64
	currency string
	metadata map[string]string
}

type fakeGateway struct {
	mu          sync.Mutex
	secret      string
	createErr   error
	retrieveErr error
	verifyErr   error
	creates     []createCall
	intents     map[string]gateway.IntentState
	event       gateway.Event
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{secret: "whsec_test", intents: map[string]gateway.IntentState{}}
}

func (f *fakeGateway) CreateIntent(_ context.Context, amountMinor int64, currency string, metadata map[string]string) (gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{amount: amountMinor, currency: currency, metadata: metadata})
	if f.createErr != nil {
		return gateway.Intent{}, f.createErr
	}
	id := "pi_" + uuid.NewString()[:8]
	f.intents[id] = gateway.IntentState{ID: id, Status: "requires_payment_method", Metadata: metadata}
	return gateway.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (f *fakeGateway) RetrieveIntent(_ context.Context, id string) (gateway.IntentState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveErr != nil {
		return gateway.IntentState{}, f.retrieveErr
	}
	st, ok := f.intents[id]
	if !ok {
		return gateway.IntentState{}, errors.New("no such payment_intent")
	}
	return st, nil
}

func (f *fakeGateway) VerifyWebhook(_ []byte, signature string) (gateway.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.secret == "" {
		return gateway.Event{}, gateway.ErrNotConfigured
	}
	if signature != f.secret {
		return gateway.Event{}, gateway.ErrSignature
	}
	if f.verifyErr != nil {
		return gateway.Event{}, f.verifyErr
	}
	return f.event, nil
}

// settle sets the processor-side state of an intent.
func (f *fakeGateway) settle(id, status, chargeID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.intents[id]
	st.ID = id
	st.Status = status
	st.ChargeID = chargeID
	f.intents[id] = st
}

func (f *fakeGateway) deliver(ev gateway.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.event = ev
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingPublisher) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	return r.err
}

func (r *recordingPublisher) OrderPlaced(context.Context, *order.Order, *payment.Payment) error {
	return r.record("OrderPlaced")
}

func (r *recordingPublisher) PaymentCompleted(context.Context, *order.Order, *payment.Payment) error {
	return r.record("PaymentCompleted")
}

func (r *recordingPublisher) PaymentFailed(context.Context, *payment.Payment, string) error {
	return r.record("PaymentFailed")
}

func (r *recordingPublisher) OrderCancelled(context.Context, *order.Order) error {
	return r.record("OrderCancelled")
}

func (r *recordingPublisher) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type memLedger struct {
	mu      sync.Mutex
	seen    map[string]string
	seenErr error
}

func newMemLedger() *memLedger {
	return &memLedger{seen: map[string]string{}}
}

func (l *memLedger) Seen(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seenErr != nil {
		return false, l.seenErr
	}
	_, ok := l.seen[id]
	return ok, nil
}

func (l *memLedger) MarkProcessed(_ context.Context, id, typ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[id] = typ
	return nil
}
