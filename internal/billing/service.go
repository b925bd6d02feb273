package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/maxvolts/maxvolts/internal/catalog"
	"github.com/maxvolts/maxvolts/internal/clients"
	"github.com/maxvolts/maxvolts/internal/identity"
	"github.com/maxvolts/maxvolts/internal/lineitems"
	"github.com/maxvolts/maxvolts/internal/platform/httpx"
	"github.com/maxvolts/maxvolts/internal/pricing"
	"github.com/maxvolts/maxvolts/internal/wizard"
)

// Service coordinates quote and invoice persistence. Every write path
// prices its lines through the line item collection before anything
// touches the database, so stored totals always match the pricing rules.
type Service struct {
	repo     Repository
	clients  clients.Repository
	products catalog.Repository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(repo Repository, clientRepo clients.Repository, productRepo catalog.Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		clients:  clientRepo,
		products: productRepo,
		validate: validator.New(),
		logger:   logger,
	}
}

// buildLines resolves each selection against the catalog, prices it and
// returns persistable rows. Header totals are the sums of the rounded
// line totals, so a stored header always equals the sum of its rows.
func (s *Service) buildLines(ctx context.Context, reqs []LineRequest) ([]Line, float64, float64, error) {
	col := lineitems.New()
	for _, lr := range reqs {
		product, err := s.products.Get(ctx, lr.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, 0, 0, fmt.Errorf("%w: unknown product %d", httpx.ErrValidation, lr.ProductID)
			}
			return nil, 0, 0, fmt.Errorf("%w: load product %d: %v", httpx.ErrStorage, lr.ProductID, err)
		}

		sel := lineitems.Selection{
			ProductID: product.ID,
			Name:      product.Name,
			UnitValue: product.Value,
			Markup:    product.Markup,
			VATRate:   product.VATRate,
			Quantity:  lr.Quantity,
		}
		if lr.Markup != nil {
			sel.Markup = *lr.Markup
		}
		if lr.VATRate != nil {
			sel.VATRate = *lr.VATRate
		}
		if lr.Description != nil {
			sel.Description = *lr.Description
		}
		if _, err := col.Add(sel); err != nil {
			return nil, 0, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
	}
	lines := linesFromItems(col.Items())
	totalValue := pricing.SumTotals(lines)
	totalVAT := pricing.SumVATs(lines)
	return lines, totalValue, totalVAT, nil
}

func linesFromItems(items []lineitems.Item) []Line {
	lines := make([]Line, 0, len(items))
	for i, it := range items {
		l := Line{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Value:      it.UnitValue,
			Markup:     it.Markup,
			VATRate:    it.VATRate,
			Quantity:   it.Quantity,
			TotalValue: pricing.RoundMoney(it.TotalValue),
			TotalVAT:   pricing.RoundMoney(it.TotalVAT),
			LineOrder:  i,
		}
		if it.Description != "" {
			desc := it.Description
			l.Description = &desc
		}
		lines = append(lines, l)
	}
	return lines
}

func (s *Service) checkClient(ctx context.Context, clientID int64) error {
	if _, err := s.clients.Get(ctx, clientID); err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return fmt.Errorf("%w: unknown client %d", httpx.ErrValidation, clientID)
		}
		return fmt.Errorf("%w: load client %d: %v", httpx.ErrStorage, clientID, err)
	}
	return nil
}

// CreateQuote persists a new quote and its lines atomically.
func (s *Service) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.checkClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	lines, totalValue, totalVAT, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	status := QuoteStatus(req.Status)
	if status == "" {
		status = QuoteStatusNew
	}

	actor := identity.ActorFromContext(ctx)
	q := Quote{
		ClientID:       req.ClientID,
		Status:         status,
		Notes:          req.Notes,
		TotalValue:     totalValue,
		TotalVAT:       totalVAT,
		CreatedBy:      actor.ID,
		CreatedByEmail: actor.Email,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		var err error
		id, err = r.CreateQuote(ctx, q)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := r.InsertQuoteLine(ctx, id, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create quote: %v", httpx.ErrStorage, err)
	}

	s.logger.Info("quote created", "quote_id", id, "client_id", q.ClientID, "lines", len(lines))
	return s.GetQuote(ctx, id)
}

// UpdateQuote replaces the header fields and the full line set in one
// transaction. An invoiced quote is frozen.
func (s *Service) UpdateQuote(ctx context.Context, id int64, req UpdateQuoteRequest) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	existing, err := s.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == QuoteStatusInvoiced {
		return nil, fmt.Errorf("%w: quote %d has been invoiced and is read only", httpx.ErrValidation, id)
	}
	if err := s.checkClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	lines, totalValue, totalVAT, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		updates := map[string]interface{}{
			"client_id":   req.ClientID,
			"status":      req.Status,
			"notes":       req.Notes,
			"total_value": totalValue,
			"total_vat":   totalVAT,
		}
		if err := r.UpdateQuoteHeader(ctx, id, updates); err != nil {
			return err
		}
		if err := r.DeleteQuoteLines(ctx, id); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := r.InsertQuoteLine(ctx, id, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: quote %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: update quote %d: %v", httpx.ErrStorage, id, err)
	}

	s.logger.Info("quote updated", "quote_id", id, "lines", len(lines))
	return s.GetQuote(ctx, id)
}

func (s *Service) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: quote %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get quote %d: %v", httpx.ErrStorage, id, err)
	}
	return q, nil
}

func (s *Service) ListQuotes(ctx context.Context, req ListRequest) ([]QuoteSummary, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.Status != "" && !QuoteStatus(req.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown quote status %q", httpx.ErrValidation, req.Status)
	}
	out, total, err := s.repo.ListQuotes(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list quotes: %v", httpx.ErrStorage, err)
	}
	return out, total, nil
}

// CreateInvoice persists a standalone invoice outside the conversion path.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.checkClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	lines, totalValue, totalVAT, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	status := InvoiceStatus(req.Status)
	if status == "" {
		status = InvoiceStatusNew
	}

	actor := identity.ActorFromContext(ctx)
	inv := Invoice{
		ClientID:       req.ClientID,
		Status:         status,
		Notes:          req.Notes,
		TotalValue:     totalValue,
		TotalVAT:       totalVAT,
		CreatedBy:      actor.ID,
		CreatedByEmail: actor.Email,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		var err error
		id, err = r.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := r.InsertInvoiceLine(ctx, id, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create invoice: %v", httpx.ErrStorage, err)
	}

	s.logger.Info("invoice created", "invoice_id", id, "client_id", inv.ClientID, "lines", len(lines))
	return s.GetInvoice(ctx, id)
}

// UpdateInvoice replaces the header fields and the full line set in one
// transaction.
func (s *Service) UpdateInvoice(ctx context.Context, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if _, err := s.GetInvoice(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	lines, totalValue, totalVAT, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		updates := map[string]interface{}{
			"client_id":   req.ClientID,
			"status":      req.Status,
			"notes":       req.Notes,
			"total_value": totalValue,
			"total_vat":   totalVAT,
		}
		if err := r.UpdateInvoiceHeader(ctx, id, updates); err != nil {
			return err
		}
		if err := r.DeleteInvoiceLines(ctx, id); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := r.InsertInvoiceLine(ctx, id, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: update invoice %d: %v", httpx.ErrStorage, id, err)
	}

	s.logger.Info("invoice updated", "invoice_id", id, "lines", len(lines))
	return s.GetInvoice(ctx, id)
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get invoice %d: %v", httpx.ErrStorage, id, err)
	}
	return inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, req ListRequest) ([]InvoiceSummary, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.Status != "" && !InvoiceStatus(req.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown invoice status %q", httpx.ErrValidation, req.Status)
	}
	out, total, err := s.repo.ListInvoices(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list invoices: %v", httpx.ErrStorage, err)
	}
	return out, total, nil
}

// ConvertQuoteToInvoice copies a quote into a new invoice. The header is
// committed first and the lines follow one by one; if any step fails the
// new invoice is deleted outright and the quote is left exactly as it
// was, surfacing ErrPartialFailure so the caller knows the conversion
// was rolled back rather than half applied. On success the source quote
// is marked invoiced and becomes read only.
func (s *Service) ConvertQuoteToInvoice(ctx context.Context, quoteID int64) (*Invoice, error) {
	quote, err := s.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == QuoteStatusInvoiced {
		return nil, fmt.Errorf("%w: quote %d has already been invoiced", httpx.ErrValidation, quoteID)
	}
	if len(quote.Lines) == 0 {
		return nil, fmt.Errorf("%w: quote %d has no lines to invoice", httpx.ErrValidation, quoteID)
	}

	actor := identity.ActorFromContext(ctx)
	inv := Invoice{
		ClientID:       quote.ClientID,
		QuoteID:        &quote.ID,
		Status:         InvoiceStatusNew,
		Notes:          quote.Notes,
		TotalValue:     quote.TotalValue,
		TotalVAT:       quote.TotalVAT,
		CreatedBy:      actor.ID,
		CreatedByEmail: actor.Email,
	}

	invoiceID, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("%w: convert quote %d: %v", httpx.ErrStorage, quoteID, err)
	}

	for _, line := range quote.Lines {
		line.ID = 0
		if _, err := s.repo.InsertInvoiceLine(ctx, invoiceID, line); err != nil {
			s.rollbackConversion(ctx, quoteID, invoiceID)
			return nil, fmt.Errorf("%w: converting quote %d: %v", httpx.ErrPartialFailure, quoteID, err)
		}
	}

	if err := s.repo.UpdateQuoteHeader(ctx, quoteID, map[string]interface{}{"status": string(QuoteStatusInvoiced)}); err != nil {
		s.rollbackConversion(ctx, quoteID, invoiceID)
		return nil, fmt.Errorf("%w: converting quote %d: %v", httpx.ErrPartialFailure, quoteID, err)
	}

	s.logger.Info("quote converted", "quote_id", quoteID, "invoice_id", invoiceID)
	return s.GetInvoice(ctx, invoiceID)
}

func (s *Service) rollbackConversion(ctx context.Context, quoteID, invoiceID int64) {
	if err := s.repo.DeleteInvoice(ctx, invoiceID); err != nil {
		s.logger.Error("conversion rollback failed", "quote_id", quoteID, "invoice_id", invoiceID, "error", err)
		return
	}
	s.logger.Warn("conversion rolled back", "quote_id", quoteID, "invoice_id", invoiceID)
}

// PreviewLine prices a single selection without persisting anything. It
// backs the add and edit product modals.
func (s *Service) PreviewLine(ctx context.Context, req LineRequest) (*LinePreview, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown product %d", httpx.ErrValidation, req.ProductID)
		}
		return nil, fmt.Errorf("%w: load product %d: %v", httpx.ErrStorage, req.ProductID, err)
	}

	markup := product.Markup
	if req.Markup != nil {
		markup = *req.Markup
	}
	vatRate := product.VATRate
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	return &LinePreview{
		ProductID:  product.ID,
		Name:       product.Name,
		Value:      product.Value,
		Markup:     markup,
		VATRate:    vatRate,
		Quantity:   req.Quantity,
		TotalValue: pricing.RoundMoney(pricing.LineTotal(req.Quantity, product.Value, markup, vatRate)),
		TotalVAT:   pricing.RoundMoney(pricing.LineVAT(req.Quantity, product.Value, markup, vatRate)),
	}, nil
}

// Options loads the reference data the document wizard needs, clients
// and visible products, concurrently.
func (s *Service) Options(ctx context.Context) (*WizardOptions, error) {
	visible := true
	opts := &WizardOptions{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, _, err := s.clients.List(gctx, clients.ListClientsRequest{IsVisible: &visible})
		if err != nil {
			return fmt.Errorf("load clients: %w", err)
		}
		opts.Clients = list
		return nil
	})
	g.Go(func() error {
		list, _, err := s.products.List(gctx, catalog.ListProductsRequest{IsVisible: &visible})
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		opts.Products = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: wizard options: %v", httpx.ErrStorage, err)
	}

	if opts.Clients == nil {
		opts.Clients = []clients.Client{}
	}
	if opts.Products == nil {
		opts.Products = []catalog.Product{}
	}
	return opts, nil
}

// ResumeQuoteWizard rebuilds editor state from a stored quote.
func (s *Service) ResumeQuoteWizard(ctx context.Context, id int64) (wizard.State, error) {
	quote, err := s.GetQuote(ctx, id)
	if err != nil {
		return wizard.State{}, err
	}
	if quote.Status == QuoteStatusInvoiced {
		return wizard.State{}, fmt.Errorf("%w: quote %d has been invoiced and is read only", httpx.ErrValidation, id)
	}
	var notes string
	if quote.Notes != nil {
		notes = *quote.Notes
	}
	return wizard.Resume(wizard.KindQuote, quote.ClientID, string(quote.Status), notes, itemsFromLines(quote.Lines)), nil
}

// ResumeInvoiceWizard rebuilds editor state from a stored invoice.
func (s *Service) ResumeInvoiceWizard(ctx context.Context, id int64) (wizard.State, error) {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return wizard.State{}, err
	}
	var notes string
	if inv.Notes != nil {
		notes = *inv.Notes
	}
	return wizard.Resume(wizard.KindInvoice, inv.ClientID, string(inv.Status), notes, itemsFromLines(inv.Lines)), nil
}

// SubmitWizard persists a completed wizard state. A nil existingID
// creates a new document, otherwise the referenced one is replaced.
// State arrives from the client, so every item is re-priced from its
// unit value before anything is written; totals carried in the state
// are never trusted.
func (s *Service) SubmitWizard(ctx context.Context, st wizard.State, existingID *int64) (int64, error) {
	if !st.ReadyToSubmit() {
		return 0, fmt.Errorf("%w: wizard is not ready to submit", httpx.ErrValidation)
	}
	if err := s.checkClient(ctx, st.ClientID); err != nil {
		return 0, err
	}

	col := lineitems.New()
	for _, it := range st.Items {
		sel := lineitems.Selection{
			ProductID:   it.ProductID,
			Name:        it.Name,
			UnitValue:   it.UnitValue,
			Markup:      it.Markup,
			VATRate:     it.VATRate,
			Quantity:    it.Quantity,
			Description: it.Description,
		}
		if _, err := col.Add(sel); err != nil {
			return 0, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
	}
	lines := linesFromItems(col.Items())
	totalValue := pricing.SumTotals(lines)
	totalVAT := pricing.SumVATs(lines)

	var notes *string
	if st.Notes != "" {
		n := st.Notes
		notes = &n
	}

	switch st.Kind {
	case wizard.KindQuote:
		if !QuoteStatus(st.Status).Valid() {
			return 0, fmt.Errorf("%w: unknown quote status %q", httpx.ErrValidation, st.Status)
		}
	case wizard.KindInvoice:
		if !InvoiceStatus(st.Status).Valid() {
			return 0, fmt.Errorf("%w: unknown invoice status %q", httpx.ErrValidation, st.Status)
		}
	default:
		return 0, fmt.Errorf("%w: unknown document kind %q", httpx.ErrValidation, st.Kind)
	}

	if existingID != nil {
		if st.Kind == wizard.KindQuote {
			existing, err := s.GetQuote(ctx, *existingID)
			if err != nil {
				return 0, err
			}
			if existing.Status == QuoteStatusInvoiced {
				return 0, fmt.Errorf("%w: quote %d has been invoiced and is read only", httpx.ErrValidation, *existingID)
			}
		} else {
			if _, err := s.GetInvoice(ctx, *existingID); err != nil {
				return 0, err
			}
		}
	}

	actor := identity.ActorFromContext(ctx)
	var docID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		if existingID != nil {
			docID = *existingID
			updates := map[string]interface{}{
				"client_id":   st.ClientID,
				"status":      st.Status,
				"notes":       notes,
				"total_value": totalValue,
				"total_vat":   totalVAT,
			}
			if st.Kind == wizard.KindQuote {
				if err := r.UpdateQuoteHeader(ctx, docID, updates); err != nil {
					return err
				}
				if err := r.DeleteQuoteLines(ctx, docID); err != nil {
					return err
				}
				for _, line := range lines {
					if _, err := r.InsertQuoteLine(ctx, docID, line); err != nil {
						return err
					}
				}
				return nil
			}
			if err := r.UpdateInvoiceHeader(ctx, docID, updates); err != nil {
				return err
			}
			if err := r.DeleteInvoiceLines(ctx, docID); err != nil {
				return err
			}
			for _, line := range lines {
				if _, err := r.InsertInvoiceLine(ctx, docID, line); err != nil {
					return err
				}
			}
			return nil
		}

		var err error
		if st.Kind == wizard.KindQuote {
			docID, err = r.CreateQuote(ctx, Quote{
				ClientID:       st.ClientID,
				Status:         QuoteStatus(st.Status),
				Notes:          notes,
				TotalValue:     totalValue,
				TotalVAT:       totalVAT,
				CreatedBy:      actor.ID,
				CreatedByEmail: actor.Email,
			})
			if err != nil {
				return err
			}
			for _, line := range lines {
				if _, err := r.InsertQuoteLine(ctx, docID, line); err != nil {
					return err
				}
			}
			return nil
		}
		docID, err = r.CreateInvoice(ctx, Invoice{
			ClientID:       st.ClientID,
			Status:         InvoiceStatus(st.Status),
			Notes:          notes,
			TotalValue:     totalValue,
			TotalVAT:       totalVAT,
			CreatedBy:      actor.ID,
			CreatedByEmail: actor.Email,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := r.InsertInvoiceLine(ctx, docID, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("%w: document %v", httpx.ErrNotFound, existingID)
		}
		return 0, fmt.Errorf("%w: submit wizard: %v", httpx.ErrStorage, err)
	}

	s.logger.Info("wizard submitted", "kind", st.Kind, "doc_id", docID, "lines", len(lines))
	return docID, nil
}

func itemsFromLines(lines []Line) []lineitems.Item {
	items := make([]lineitems.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, l.Item())
	}
	return items
}
