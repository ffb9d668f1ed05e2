package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"donobot/internal/ledger"
	"donobot/internal/metrics"
	kit "donobot/internal/transport"
	logx "donobot/pkg/logx"
)

// Handler accepts payment-provider callbacks, appends accepted donations to
// the ledger, and posts a standalone announcement per donation. Announcements
// are a permanent feed: always a fresh send, never edited or deleted, so they
// bypass the lifecycle manager on purpose.
type Handler struct {
	log     logx.Logger
	ledger  *ledger.Service
	adapter kit.Adapter
	target  kit.ChatTarget
	rec     *metrics.Recorder

	// DefaultCurrency labels amounts when the callback omits a currency.
	DefaultCurrency string
}

func NewHandler(svc *ledger.Service, adapter kit.Adapter, target kit.ChatTarget, rec *metrics.Recorder, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{
		log:             log,
		ledger:          svc,
		adapter:         adapter,
		target:          target,
		rec:             rec,
		DefaultCurrency: "USDT",
	}
}

// Callback handles POST /callback. It always answers with a well-formed JSON
// status; nothing raises past this boundary.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		h.log.Debug("malformed callback body", logx.Err(err))
		h.rec.Donation("bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "bad_request"})
		return
	}

	amount, ok := parseAmount(payload)
	if !ok || !amount.IsPositive() {
		h.log.Info("callback ignored: invalid amount", logx.Any("amount", payload["amount"]))
		h.rec.Donation("ignored")
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": "invalid amount"})
		return
	}

	d := ledger.Donation{
		Name:     stringField(payload, "name"),
		Amount:   amount,
		Currency: stringField(payload, "currency"),
		Note:     stringField(payload, "note"),
		TxID:     stringField(payload, "txid"),
		Raw:      payload,
	}
	if d.Currency == "" {
		d.Currency = h.DefaultCurrency
	}

	rec, err := h.ledger.Append(r.Context(), d)
	if err != nil {
		// Append re-validates the amount; anything else is internal.
		if err == ledger.ErrInvalidAmount {
			h.rec.Donation("ignored")
			writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": "invalid amount"})
			return
		}
		h.log.Error("ledger append failed", logx.Err(err))
		h.rec.Donation("error")
		writeJSON(w, http.StatusOK, map[string]any{"status": "error"})
		return
	}

	h.rec.Donation("ok")
	amt, _ := rec.Amount.Float64()
	h.rec.DonationAmount(amt)
	h.log.Info("donation accepted",
		logx.String("donor", rec.DisplayName()),
		logx.String("amount", rec.Amount.StringFixed(2)),
		logx.String("currency", rec.Currency),
		logx.String("txid", rec.TxID),
	)

	total := ledger.Total(h.ledger.Snapshot())
	text := h.announcement(rec, total)
	if _, err := h.adapter.SendText(r.Context(), h.target, text, &kit.SendOptions{ParseMode: "Markdown"}); err != nil {
		// The donation is recorded; a failed announcement is transient.
		h.log.Warn("announcement send failed", logx.Err(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": rec.ID.String()})
}

func (h *Handler) announcement(rec ledger.Record, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("🎉 *New Donation Received*\n\n")
	fmt.Fprintf(&b, "💰 Amount: *%s* %s\n", rec.Amount.StringFixed(2), rec.Currency)
	fmt.Fprintf(&b, "👤 Donor: *%s*\n", rec.DisplayName())
	if rec.Note != "" {
		fmt.Fprintf(&b, "🧾 Note: `%s`\n", rec.Note)
	}
	if rec.TxID != "" {
		fmt.Fprintf(&b, "🔗 TX: `%s`\n", rec.TxID)
	}
	fmt.Fprintf(&b, "\n📊 Total raised: *%s* %s", total.StringFixed(2), rec.Currency)
	return b.String()
}

// parseAmount pulls the donation amount out of the callback payload. The
// provider is inconsistent: the value may live under "amount" or "value" and
// arrive as a JSON number or a string.
func parseAmount(payload map[string]any) (decimal.Decimal, bool) {
	v, ok := payload["amount"]
	if !ok || v == nil || v == "" {
		v = payload["value"]
	}
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(x), true
	default:
		return decimal.Decimal{}, false
	}
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return strings.TrimSpace(s)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
