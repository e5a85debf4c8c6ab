package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics records counters for the subscription/payment lifecycle.
type BillingMetrics struct {
	purchases     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	quotaDenied   prometheus.Counter
	questionSets  prometheus.Counter
}

// NewBillingMetrics registers the billing metrics on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_purchases_total",
		Help: "Subscription purchase attempts by package slug.",
	}, []string{"package"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Admin payment verification outcomes by resulting status.",
	}, []string{"status"})
	quotaDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quota_denied_total",
		Help: "Question-set creations rejected because the quota was exhausted.",
	})
	questionSets := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "question_sets_created_total",
		Help: "Question sets created against a subscription.",
	})
	reg.MustRegister(purchases, verifications, quotaDenied, questionSets)
	return &BillingMetrics{
		purchases:     purchases,
		verifications: verifications,
		quotaDenied:   quotaDenied,
		questionSets:  questionSets,
	}
}

// IncPurchase increments the purchase counter for the package slug.
func (b *BillingMetrics) IncPurchase(packageSlug string) {
	if b == nil || b.purchases == nil {
		return
	}
	b.purchases.WithLabelValues(normalizeLabel(packageSlug)).Inc()
}

// IncVerification increments the verification counter for the resulting status.
func (b *BillingMetrics) IncVerification(status string) {
	if b == nil || b.verifications == nil {
		return
	}
	b.verifications.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncQuotaDenied increments the quota rejection counter.
func (b *BillingMetrics) IncQuotaDenied() {
	if b == nil || b.quotaDenied == nil {
		return
	}
	b.quotaDenied.Inc()
}

// IncQuestionSetCreated increments the question-set creation counter.
func (b *BillingMetrics) IncQuestionSetCreated() {
	if b == nil || b.questionSets == nil {
		return
	}
	b.questionSets.Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
