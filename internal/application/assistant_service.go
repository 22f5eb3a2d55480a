package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/pkg/errors"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
)

// Assistant topics
const (
	TopicProduction = "production"
	TopicInventory  = "inventory"
	TopicTechnical  = "technical"
	TopicOrders     = "orders"
	TopicGeneral    = "general"
)

const maxRelatedDocuments = 3

// topicKeywords is evaluated in order; the first group with a hit wins.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{TopicProduction, []string{"üretim", "imalat", "montaj"}},
	{TopicInventory, []string{"stok", "malzeme", "envanter"}},
	{TopicTechnical, []string{"teknik", "şartname", "doküman", "akım trafo", "gerilim trafo"}},
	{TopicOrders, []string{"sipariş", "müşteri", "teslim"}},
}

// ClassifyQuestion picks the assistant topic of a question
func ClassifyQuestion(question string) string {
	q := strings.ToLower(question)
	for _, group := range topicKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(q, kw) {
				return group.topic
			}
		}
	}
	return TopicGeneral
}

// AssistantService answers shop-floor questions with keyword rules over
// the technical documents, the orders and the latest plan.
type AssistantService struct {
	docRepo   domain.TechnicalDocumentRepository
	orderRepo domain.OrderRepository
	planRepo  domain.PlanRepository
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewAssistantService creates a new AssistantService
func NewAssistantService(
	docRepo domain.TechnicalDocumentRepository,
	orderRepo domain.OrderRepository,
	planRepo domain.PlanRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *AssistantService {
	return &AssistantService{
		docRepo:   docRepo,
		orderRepo: orderRepo,
		planRepo:  planRepo,
		logger:    logger,
		metrics:   m,
	}
}

// Ask answers a question
func (s *AssistantService) Ask(ctx context.Context, cmd AskCommand) (*AssistantAnswerDTO, error) {
	question := strings.TrimSpace(cmd.Question)
	if question == "" {
		return nil, errors.ErrValidation("question is required")
	}

	topic := ClassifyQuestion(question)

	var (
		answer *AssistantAnswerDTO
		err    error
	)
	switch topic {
	case TopicProduction:
		answer, err = s.answerProduction(ctx)
	case TopicInventory:
		answer = &AssistantAnswerDTO{
			Answer: "Stok ve malzeme verileri planlama servisinde tutulmuyor. Güncel stok seviyeleri için stok yönetim sistemini kullanın.",
			Source: "Stok Yönetim Sistemi",
		}
	case TopicTechnical:
		answer, err = s.answerTechnical(ctx, strings.ToLower(question))
	case TopicOrders:
		answer, err = s.answerOrders(ctx)
	default:
		answer = &AssistantAnswerDTO{
			Answer: "Üretime, stoklara, siparişlere ve teknik bilgilere dair sorular sorabilirsiniz. Örneğin \"Üretim durumu nedir?\", \"Sipariş teslim durumları nasıl?\" veya \"RM 36 CB akım trafosu özellikleri nedir?\"",
			Source: "METS Dokümantasyonu",
		}
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to answer question", "topic", topic)
		return nil, err
	}

	answer.Topic = topic
	if answer.RelatedDocuments == nil {
		answer.RelatedDocuments = []TechnicalDocumentDTO{}
	}
	s.metrics.RecordAssistantQuery(topic)

	return answer, nil
}

func (s *AssistantService) answerProduction(ctx context.Context) (*AssistantAnswerDTO, error) {
	active, err := s.orderRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active orders: %w", err)
	}
	latest, err := s.planRepo.FindLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest plan: %w", err)
	}

	var b strings.Builder
	inProgress := 0
	for _, o := range active {
		if o.Status == domain.StatusInProgress {
			inProgress++
		}
	}
	fmt.Fprintf(&b, "%d aktif siparişin %d tanesi üretimde.", len(active), inProgress)

	if latest == nil {
		b.WriteString(" Henüz bir üretim planı oluşturulmadı.")
	} else {
		busiest := ""
		var util float64
		for _, u := range latest.Plan.CapacityLoad.Units {
			if u.Utilization > util {
				busiest, util = u.Name, u.Utilization
			}
		}
		fmt.Fprintf(&b, " Son plan (%s) %d görev içeriyor.", latest.PlanID, len(latest.Plan.Schedule))
		if busiest != "" {
			fmt.Fprintf(&b, " En yoğun birim %s, doluluk %%%.0f.", busiest, util*100)
		}
		if latest.HasOverload() {
			fmt.Fprintf(&b, " Kapasitesi aşılan birimler: %s.", strings.Join(latest.OverloadedUnits, ", "))
		}
	}

	return &AssistantAnswerDTO{Answer: b.String(), Source: "Üretim Planı"}, nil
}

func (s *AssistantService) answerTechnical(ctx context.Context, question string) (*AssistantAnswerDTO, error) {
	docs, err := s.docRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load technical documents: %w", err)
	}

	type scored struct {
		doc   *domain.TechnicalDocument
		score int
	}
	var hits []scored
	for _, d := range docs {
		if score := d.Score(question); score > 0 {
			hits = append(hits, scored{doc: d, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) == 0 {
		answer := &AssistantAnswerDTO{
			Answer: "Bu konuda bilgi bulunamadı. RM 36 serisi teknik şartnameleri doküman listesinde yer almaktadır.",
			Source: "Genel Teknik Doküman",
		}
		for i := 0; i < len(docs) && i < maxRelatedDocuments; i++ {
			answer.RelatedDocuments = append(answer.RelatedDocuments, ToTechnicalDocumentDTO(docs[i]))
		}
		return answer, nil
	}

	best := hits[0].doc
	answer := &AssistantAnswerDTO{
		Answer: best.Content,
		Source: best.Reference(),
	}
	for i := 0; i < len(hits) && i < maxRelatedDocuments; i++ {
		answer.RelatedDocuments = append(answer.RelatedDocuments, ToTechnicalDocumentDTO(hits[i].doc))
	}
	return answer, nil
}

func (s *AssistantService) answerOrders(ctx context.Context) (*AssistantAnswerDTO, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	active, err := s.orderRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active orders: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Toplam %d sipariş var: %d planlandı, %d üretimde, %d gecikmede, %d tamamlandı.",
		total,
		counts[domain.StatusPlanned],
		counts[domain.StatusInProgress],
		counts[domain.StatusDelayed],
		counts[domain.StatusCompleted],
	)

	var next *domain.Order
	for _, o := range active {
		if o.DeliveryDate.IsZero() {
			continue
		}
		if next == nil || o.DeliveryDate.Before(next.DeliveryDate) {
			next = o
		}
	}
	if next != nil {
		fmt.Fprintf(&b, " En yakın teslim %s (%s) için %s.",
			next.OrderNo, next.CustomerInfo.Name, next.DeliveryDate.Format("02.01.2006"))
		if next.EstimatedDelivery != nil {
			fmt.Fprintf(&b, " Plana göre tahmini bitiş %s.", next.EstimatedDelivery.Format("02.01.2006 15:04"))
		}
	}

	return &AssistantAnswerDTO{Answer: b.String(), Source: "Sipariş Yönetim Sistemi"}, nil
}
