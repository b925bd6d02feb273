package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvolts/maxvolts/internal/catalog"
	"github.com/maxvolts/maxvolts/internal/clients"
	"github.com/maxvolts/maxvolts/internal/identity"
	"github.com/maxvolts/maxvolts/internal/lineitems"
	"github.com/maxvolts/maxvolts/internal/platform/httpx"
	"github.com/maxvolts/maxvolts/internal/wizard"
)

func doubleSocketSelection(qty float64) lineitems.Selection {
	return lineitems.Selection{
		ProductID: 10,
		Name:      "Double socket",
		UnitValue: 10.00,
		Markup:    10,
		VATRate:   20,
		Quantity:  qty,
	}
}

type mockRepository struct {
	quotes   map[int64]*Quote
	invoices map[int64]*Invoice
	nextID   int64

	failCreateQuote       error
	failInsertQuoteLine   error
	failCreateInvoice     error
	failInsertInvoiceLine error
	failUpdateQuoteHeader error
	failDeleteInvoice     error

	deleteInvoiceCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotes:   make(map[int64]*Quote),
		invoices: make(map[int64]*Invoice),
	}
}

func (m *mockRepository) id() int64 {
	m.nextID++
	return m.nextID
}

// WithTx snapshots the stores and restores them when fn fails, matching
// real rollback behaviour closely enough for the service paths.
func (m *mockRepository) WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	quotes := make(map[int64]*Quote, len(m.quotes))
	for k, v := range m.quotes {
		cp := *v
		cp.Lines = append([]Line(nil), v.Lines...)
		quotes[k] = &cp
	}
	invoices := make(map[int64]*Invoice, len(m.invoices))
	for k, v := range m.invoices {
		cp := *v
		cp.Lines = append([]Line(nil), v.Lines...)
		invoices[k] = &cp
	}
	nextID := m.nextID

	if err := fn(ctx, m); err != nil {
		m.quotes = quotes
		m.invoices = invoices
		m.nextID = nextID
		return err
	}
	return nil
}

func (m *mockRepository) CreateQuote(ctx context.Context, q Quote) (int64, error) {
	if m.failCreateQuote != nil {
		return 0, m.failCreateQuote
	}
	q.ID = m.id()
	m.quotes[q.ID] = &q
	return q.ID, nil
}

func (m *mockRepository) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	cp.Lines = append([]Line(nil), q.Lines...)
	sort.Slice(cp.Lines, func(i, j int) bool { return cp.Lines[i].LineOrder < cp.Lines[j].LineOrder })
	return &cp, nil
}

func (m *mockRepository) ListQuotes(ctx context.Context, req ListRequest) ([]QuoteSummary, int, error) {
	var out []QuoteSummary
	for _, q := range m.quotes {
		if req.Status != "" && string(q.Status) != req.Status {
			continue
		}
		if req.ClientID > 0 && q.ClientID != req.ClientID {
			continue
		}
		out = append(out, QuoteSummary{Quote: *q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *mockRepository) UpdateQuoteHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	if m.failUpdateQuoteHeader != nil {
		return m.failUpdateQuoteHeader
	}
	q, ok := m.quotes[id]
	if !ok {
		return ErrNotFound
	}
	applyHeaderUpdates(updates, &q.ClientID, (*string)(&q.Status), &q.Notes, &q.TotalValue, &q.TotalVAT)
	return nil
}

func (m *mockRepository) InsertQuoteLine(ctx context.Context, quoteID int64, line Line) (int64, error) {
	if m.failInsertQuoteLine != nil {
		return 0, m.failInsertQuoteLine
	}
	q, ok := m.quotes[quoteID]
	if !ok {
		return 0, ErrNotFound
	}
	line.ID = m.id()
	q.Lines = append(q.Lines, line)
	return line.ID, nil
}

func (m *mockRepository) DeleteQuoteLines(ctx context.Context, quoteID int64) error {
	q, ok := m.quotes[quoteID]
	if !ok {
		return ErrNotFound
	}
	q.Lines = nil
	return nil
}

func (m *mockRepository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	if m.failCreateInvoice != nil {
		return 0, m.failCreateInvoice
	}
	inv.ID = m.id()
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *mockRepository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	cp.Lines = append([]Line(nil), inv.Lines...)
	sort.Slice(cp.Lines, func(i, j int) bool { return cp.Lines[i].LineOrder < cp.Lines[j].LineOrder })
	return &cp, nil
}

func (m *mockRepository) ListInvoices(ctx context.Context, req ListRequest) ([]InvoiceSummary, int, error) {
	var out []InvoiceSummary
	for _, inv := range m.invoices {
		if req.Status != "" && string(inv.Status) != req.Status {
			continue
		}
		if req.ClientID > 0 && inv.ClientID != req.ClientID {
			continue
		}
		out = append(out, InvoiceSummary{Invoice: *inv})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *mockRepository) UpdateInvoiceHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	applyHeaderUpdates(updates, &inv.ClientID, (*string)(&inv.Status), &inv.Notes, &inv.TotalValue, &inv.TotalVAT)
	return nil
}

func (m *mockRepository) InsertInvoiceLine(ctx context.Context, invoiceID int64, line Line) (int64, error) {
	if m.failInsertInvoiceLine != nil {
		return 0, m.failInsertInvoiceLine
	}
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return 0, ErrNotFound
	}
	line.ID = m.id()
	inv.Lines = append(inv.Lines, line)
	return line.ID, nil
}

func (m *mockRepository) DeleteInvoiceLines(ctx context.Context, invoiceID int64) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	inv.Lines = nil
	return nil
}

func (m *mockRepository) DeleteInvoice(ctx context.Context, id int64) error {
	m.deleteInvoiceCalls++
	if m.failDeleteInvoice != nil {
		return m.failDeleteInvoice
	}
	if _, ok := m.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

func applyHeaderUpdates(updates map[string]interface{}, clientID *int64, status *string, notes **string, totalValue, totalVAT *float64) {
	if v, ok := updates["client_id"]; ok {
		*clientID = v.(int64)
	}
	if v, ok := updates["status"]; ok {
		*status = v.(string)
	}
	if v, ok := updates["notes"]; ok {
		n, _ := v.(*string)
		*notes = n
	}
	if v, ok := updates["total_value"]; ok {
		*totalValue = v.(float64)
	}
	if v, ok := updates["total_vat"]; ok {
		*totalVAT = v.(float64)
	}
}

type mockClientRepo struct {
	clients map[int64]clients.Client
	listErr error
}

func (m *mockClientRepo) Get(ctx context.Context, id int64) (*clients.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return &c, nil
}

func (m *mockClientRepo) List(ctx context.Context, req clients.ListClientsRequest) ([]clients.Client, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []clients.Client
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockClientRepo) Create(ctx context.Context, c clients.Client) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *mockClientRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return errors.New("not implemented")
}

type mockProductRepo struct {
	products map[int64]catalog.Product
	getErr   error
}

func (m *mockProductRepo) Get(ctx context.Context, id int64) (*catalog.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) List(ctx context.Context, req catalog.ListProductsRequest) ([]catalog.Product, int, error) {
	var out []catalog.Product
	for _, p := range m.products {
		if req.IsVisible != nil && p.IsVisible != *req.IsVisible {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockProductRepo) Create(ctx context.Context, p catalog.Product) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *mockProductRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return errors.New("not implemented")
}

func newTestService(repo *mockRepository) (*Service, *mockClientRepo, *mockProductRepo) {
	clientRepo := &mockClientRepo{clients: map[int64]clients.Client{
		1: {ID: 1, Name: "Amber Estates", IsVisible: true},
		2: {ID: 2, Name: "Birchwood Lettings", IsVisible: true},
	}}
	productRepo := &mockProductRepo{products: map[int64]catalog.Product{
		10: {ID: 10, Name: "Double socket", Value: 10.00, Markup: 10, VATRate: 20, IsVisible: true},
		11: {ID: 11, Name: "Consumer unit", Value: 120.00, Markup: 15, VATRate: 20, IsVisible: true},
		12: {ID: 12, Name: "Site survey", Value: 0, Markup: 0, VATRate: 0, IsVisible: true},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, clientRepo, productRepo, logger), clientRepo, productRepo
}

func actorContext() context.Context {
	sess := &identity.Session{ID: "test-session"}
	sess.SetActor(identity.Actor{ID: 7, Email: "amy@maxvolts.example"})
	return identity.ContextWithSession(context.Background(), sess)
}

func TestCreateQuoteComputesTotals(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	quote, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 10},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, QuoteStatusNew, quote.Status)
	assert.Equal(t, int64(7), quote.CreatedBy)
	assert.Equal(t, "amy@maxvolts.example", quote.CreatedByEmail)
	assert.InDelta(t, 132.00, quote.TotalValue, 0.001)
	assert.InDelta(t, 22.00, quote.TotalVAT, 0.001)

	require.Len(t, quote.Lines, 1)
	line := quote.Lines[0]
	assert.Equal(t, "Double socket", line.Name)
	assert.InDelta(t, 10.00, line.Value, 0.001)
	assert.InDelta(t, 132.00, line.TotalValue, 0.001)
	assert.InDelta(t, 22.00, line.TotalVAT, 0.001)
}

func TestCreateQuoteHeaderEqualsLineSums(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	quote, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 10},
			{ProductID: 11, Quantity: 2},
			{ProductID: 12, Quantity: 3},
		},
	})
	require.NoError(t, err)

	var sumValue, sumVAT float64
	for _, l := range quote.Lines {
		sumValue += l.TotalValue
		sumVAT += l.TotalVAT
	}
	assert.InDelta(t, sumValue, quote.TotalValue, 1e-9)
	assert.InDelta(t, sumVAT, quote.TotalVAT, 1e-9)
}

func TestCreateQuoteMarkupOverride(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	override := 50.0
	quote, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 2, Markup: &override},
		},
	})
	require.NoError(t, err)

	// 2 * 10.00 * 1.5 * 1.2
	assert.InDelta(t, 36.00, quote.TotalValue, 0.001)
	assert.InDelta(t, 6.00, quote.TotalVAT, 0.001)
}

func TestCreateQuoteVATOverride(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	override := 5.0
	quote, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 1, VATRate: &override},
		},
	})
	require.NoError(t, err)

	// 1 * 10.00 * 1.1 * 1.05
	assert.InDelta(t, 11.55, quote.TotalValue, 0.001)
	assert.InDelta(t, 0.55, quote.TotalVAT, 0.001)
	require.Len(t, quote.Lines, 1)
	assert.InDelta(t, 5.0, quote.Lines[0].VATRate, 0.001)
}

func TestCreateQuoteUnknownClient(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	_, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{
		ClientID: 999,
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.quotes)
}

func TestCreateQuoteUnknownProduct(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	_, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{
		ClientID: 1,
		Lines:    []LineRequest{{ProductID: 999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.quotes)
}

func TestCreateQuoteRequiresLines(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	_, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{ClientID: 1})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateQuoteLineFailureRollsBackHeader(t *testing.T) {
	repo := newMockRepository()
	repo.failInsertQuoteLine = errors.New("disk full")
	svc, _, _ := newTestService(repo)

	_, err := svc.CreateQuote(actorContext(), CreateQuoteRequest{
		ClientID: 1,
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	assert.ErrorIs(t, err, httpx.ErrStorage)
	assert.Empty(t, repo.quotes, "header must not survive a failed line insert")
}

func TestUpdateQuoteReplacesLines(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 10},
			{ProductID: 11, Quantity: 2},
		},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateQuote(ctx, quote.ID, UpdateQuoteRequest{
		ClientID: 2,
		Status:   "quoted",
		Lines:    []LineRequest{{ProductID: 11, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.ClientID)
	assert.Equal(t, QuoteStatusQuoted, updated.Status)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, int64(11), updated.Lines[0].ProductID)
	// 1 * 120.00 * 1.15 * 1.2
	assert.InDelta(t, 165.60, updated.TotalValue, 0.001)
	assert.InDelta(t, 27.60, updated.TotalVAT, 0.001)
}

func TestUpdateQuoteNotFound(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	_, err := svc.UpdateQuote(actorContext(), 42, UpdateQuoteRequest{
		ClientID: 1,
		Status:   "quoted",
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateQuoteInvoicedIsReadOnly(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Status:   "accepted",
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID)
	require.NoError(t, err)

	_, err = svc.UpdateQuote(ctx, quote.ID, UpdateQuoteRequest{
		ClientID: 1,
		Status:   "quoted",
		Lines:    []LineRequest{{ProductID: 10, Quantity: 5}},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestConvertQuoteToInvoice(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Status:   "accepted",
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 10},
			{ProductID: 11, Quantity: 2},
		},
	})
	require.NoError(t, err)

	invoice, err := svc.ConvertQuoteToInvoice(ctx, quote.ID)
	require.NoError(t, err)

	assert.Equal(t, InvoiceStatusNew, invoice.Status)
	assert.Equal(t, quote.ClientID, invoice.ClientID)
	require.NotNil(t, invoice.QuoteID)
	assert.Equal(t, quote.ID, *invoice.QuoteID)
	assert.InDelta(t, quote.TotalValue, invoice.TotalValue, 1e-9)
	assert.InDelta(t, quote.TotalVAT, invoice.TotalVAT, 1e-9)
	require.Len(t, invoice.Lines, len(quote.Lines))
	for i, l := range invoice.Lines {
		assert.Equal(t, quote.Lines[i].ProductID, l.ProductID)
		assert.InDelta(t, quote.Lines[i].TotalValue, l.TotalValue, 1e-9)
		assert.NotEqual(t, quote.Lines[i].ID, l.ID)
	}

	source, err := svc.GetQuote(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusInvoiced, source.Status)
}

func TestConvertQuoteAlreadyInvoiced(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID)
	require.NoError(t, err)

	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Len(t, repo.invoices, 1)
}

func TestConvertQuoteLineFailureRollsBack(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Status:   "accepted",
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 10},
			{ProductID: 11, Quantity: 2},
		},
	})
	require.NoError(t, err)

	repo.failInsertInvoiceLine = errors.New("connection reset")

	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID)
	assert.ErrorIs(t, err, httpx.ErrPartialFailure)
	assert.Equal(t, 1, repo.deleteInvoiceCalls)
	assert.Empty(t, repo.invoices, "half-written invoice must be removed")

	source, err := svc.GetQuote(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusAccepted, source.Status)
	assert.Len(t, source.Lines, 2)
	assert.InDelta(t, quote.TotalValue, source.TotalValue, 1e-9)
}

func TestConvertQuoteStatusUpdateFailureRollsBack(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	require.NoError(t, err)

	repo.failUpdateQuoteHeader = errors.New("lock timeout")

	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID)
	assert.ErrorIs(t, err, httpx.ErrPartialFailure)
	assert.Empty(t, repo.invoices)
}

func TestPreviewLine(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	preview, err := svc.PreviewLine(context.Background(), LineRequest{ProductID: 10, Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, "Double socket", preview.Name)
	assert.InDelta(t, 132.00, preview.TotalValue, 0.001)
	assert.InDelta(t, 22.00, preview.TotalVAT, 0.001)
}

func TestPreviewLineVATOverride(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	override := 5.0
	preview, err := svc.PreviewLine(context.Background(), LineRequest{ProductID: 10, Quantity: 1, VATRate: &override})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, preview.VATRate, 0.001)
	assert.InDelta(t, 11.55, preview.TotalValue, 0.001)
	assert.InDelta(t, 0.55, preview.TotalVAT, 0.001)
}

func TestOptionsLoadsClientsAndProducts(t *testing.T) {
	repo := newMockRepository()
	svc, _, productRepo := newTestService(repo)

	hidden := productRepo.products[12]
	hidden.IsVisible = false
	productRepo.products[12] = hidden

	opts, err := svc.Options(context.Background())
	require.NoError(t, err)

	assert.Len(t, opts.Clients, 2)
	assert.Len(t, opts.Products, 2, "hidden products are excluded")
}

func TestOptionsSurfacesStorageError(t *testing.T) {
	repo := newMockRepository()
	svc, clientRepo, _ := newTestService(repo)
	clientRepo.listErr = errors.New("pool exhausted")

	_, err := svc.Options(context.Background())
	assert.ErrorIs(t, err, httpx.ErrStorage)
}

func TestSubmitWizardCreatesQuote(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	st := wizard.NewQuote()
	st, err := wizard.Apply(st, wizard.SetClient{ClientID: 1})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.AddItem{Selection: doubleSocketSelection(10)})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)

	id, err := svc.SubmitWizard(ctx, st, nil)
	require.NoError(t, err)

	quote, err := svc.GetQuote(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 132.00, quote.TotalValue, 0.001)
	require.Len(t, quote.Lines, 1)
}

func TestSubmitWizardRejectsIncompleteState(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	st := wizard.NewQuote()
	_, err := svc.SubmitWizard(actorContext(), st, nil)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.quotes)
}

func TestSubmitWizardRepricesTamperedTotals(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	st := wizard.NewQuote()
	st, err := wizard.Apply(st, wizard.SetClient{ClientID: 1})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.AddItem{Selection: doubleSocketSelection(1)})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)

	st.Items[0].TotalValue = 999999
	st.Items[0].TotalVAT = 999

	id, err := svc.SubmitWizard(ctx, st, nil)
	require.NoError(t, err)

	quote, err := svc.GetQuote(ctx, id)
	require.NoError(t, err)
	require.Len(t, quote.Lines, 1)
	assert.InDelta(t, 13.20, quote.Lines[0].TotalValue, 0.001)
	assert.InDelta(t, 2.20, quote.Lines[0].TotalVAT, 0.001)
	assert.InDelta(t, 13.20, quote.TotalValue, 0.001)
	assert.InDelta(t, 2.20, quote.TotalVAT, 0.001)
}

func TestSubmitWizardRejectsInvalidItemQuantity(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	st := wizard.NewQuote()
	st, err := wizard.Apply(st, wizard.SetClient{ClientID: 1})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.AddItem{Selection: doubleSocketSelection(1)})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)

	st.Items[0].Quantity = 0

	_, err = svc.SubmitWizard(actorContext(), st, nil)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.quotes)
}

func TestSubmitWizardRespectsInvoicedFreeze(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Lines:    []LineRequest{{ProductID: 10, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID)
	require.NoError(t, err)

	st := wizard.NewQuote()
	st, err = wizard.Apply(st, wizard.SetClient{ClientID: 1})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.AddItem{Selection: doubleSocketSelection(2)})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)

	_, err = svc.SubmitWizard(ctx, st, &quote.ID)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	frozen, err := svc.GetQuote(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusInvoiced, frozen.Status)
	require.Len(t, frozen.Lines, 1)
}

func TestSubmitWizardUpdateMissingDocument(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)

	st := wizard.NewQuote()
	st, err := wizard.Apply(st, wizard.SetClient{ClientID: 1})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.AddItem{Selection: doubleSocketSelection(1)})
	require.NoError(t, err)
	st, err = wizard.Apply(st, wizard.Next{})
	require.NoError(t, err)

	missing := int64(9999)
	_, err = svc.SubmitWizard(actorContext(), st, &missing)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestResumeQuoteWizard(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestService(repo)
	ctx := actorContext()

	quote, err := svc.CreateQuote(ctx, CreateQuoteRequest{
		ClientID: 1,
		Status:   "quoted",
		Lines:    []LineRequest{{ProductID: 10, Quantity: 10}},
	})
	require.NoError(t, err)

	st, err := svc.ResumeQuoteWizard(ctx, quote.ID)
	require.NoError(t, err)

	assert.Equal(t, wizard.KindQuote, st.Kind)
	assert.Equal(t, wizard.StepSelectClient, st.Step)
	assert.Equal(t, quote.ClientID, st.ClientID)
	assert.Equal(t, "quoted", st.Status)
	require.Len(t, st.Items, 1)
	assert.InDelta(t, quote.TotalValue, st.TotalValue, 0.001)
}
