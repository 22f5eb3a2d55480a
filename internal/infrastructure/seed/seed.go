// Package seed provides the reference and demo data loaded at startup.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/logging"
)

// Loader writes seed data into empty repositories
type Loader struct {
	orders    domain.OrderRepository
	units     domain.ProductionUnitRepository
	documents domain.TechnicalDocumentRepository
	logger    *logging.Logger

	// seedUnits replaces the built-in plant departments when set
	seedUnits []planning.ProductionUnit
}

// NewLoader creates a seed loader
func NewLoader(
	orders domain.OrderRepository,
	units domain.ProductionUnitRepository,
	documents domain.TechnicalDocumentRepository,
	logger *logging.Logger,
) *Loader {
	return &Loader{orders: orders, units: units, documents: documents, logger: logger}
}

// WithProductionUnits makes EnsureReferenceData seed units instead of the
// built-in departments. An empty slice keeps the defaults.
func (l *Loader) WithProductionUnits(units []planning.ProductionUnit) *Loader {
	l.seedUnits = units
	return l
}

// EnsureReferenceData stores the default units and the technical
// documents when their collections are empty.
func (l *Loader) EnsureReferenceData(ctx context.Context) error {
	units, err := l.units.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load production units: %w", err)
	}
	if len(units) == 0 {
		seeded := ProductionUnits()
		if len(l.seedUnits) > 0 {
			seeded = toDomainUnits(l.seedUnits)
		}
		for _, u := range seeded {
			if err := l.units.Save(ctx, u); err != nil {
				return fmt.Errorf("failed to seed production unit %s: %w", u.UnitID, err)
			}
		}
		l.logger.Info("Seeded production units", "count", len(seeded))
	}

	docs, err := l.documents.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load technical documents: %w", err)
	}
	if len(docs) == 0 {
		seeded := TechnicalDocuments()
		for _, d := range seeded {
			if err := l.documents.Save(ctx, d); err != nil {
				return fmt.Errorf("failed to seed technical document %s: %w", d.DocID, err)
			}
		}
		l.logger.Info("Seeded technical documents", "count", len(seeded))
	}
	return nil
}

// LoadDemoOrders stores the demo orders when no order exists yet
func (l *Loader) LoadDemoOrders(ctx context.Context) error {
	total, err := l.orders.Count(ctx, domain.OrderFilter{})
	if err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}
	if total > 0 {
		return nil
	}

	orders := DemoOrders()
	for _, o := range orders {
		if err := l.orders.Save(ctx, o); err != nil {
			return fmt.Errorf("failed to seed order %s: %w", o.OrderID, err)
		}
	}
	l.logger.Info("Seeded demo orders", "count", len(orders))
	return nil
}

// ProductionUnits returns the plant departments as domain units
func ProductionUnits() []*domain.ProductionUnit {
	return toDomainUnits(planning.DefaultProductionUnits())
}

func toDomainUnits(units []planning.ProductionUnit) []*domain.ProductionUnit {
	out := make([]*domain.ProductionUnit, 0, len(units))
	for _, u := range units {
		unit := domain.ProductionUnitFromPlanning(u)
		unit.UpdatedAt = time.Now().UTC()
		out = append(out, unit)
	}
	return out
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

type demoOrder struct {
	id        string
	orderNo   string
	orderDate time.Time
	delivery  time.Time
	customer  domain.CustomerInfo
	cells     []domain.Cell
	status    string
	priority  domain.Priority
	updatedAt time.Time
	notes     string
}

var demoOrders = []demoOrder{
	{
		id:        "ORD-0424A001",
		orderNo:   "#0424-1251",
		orderDate: day(2024, 4, 1),
		delivery:  day(2024, 11, 15),
		customer:  domain.CustomerInfo{Name: "AYEDAŞ", DocumentNo: "PO-2024-A156", ContactPerson: "Ahmet Yılmaz"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 CB", Quantity: 1}},
		status:    "delayed",
		priority:  domain.PriorityHigh,
		updatedAt: day(2024, 4, 15),
		notes:     "36kV 630A 16kA Kesicili Çıkış Hücresi",
	},
	{
		id:        "ORD-0424A002",
		orderNo:   "#0424-1245",
		orderDate: day(2024, 4, 5),
		delivery:  day(2024, 11, 20),
		customer:  domain.CustomerInfo{Name: "BEDAŞ", DocumentNo: "PO-2024-B789", ContactPerson: "Mehmet Demir"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 LB", Quantity: 2}, {ProductTypeCode: "RM 36 CB", Quantity: 3}},
		status:    "in_progress",
		priority:  domain.PriorityMedium,
		updatedAt: day(2024, 4, 10),
	},
	{
		id:        "ORD-0424A003",
		orderNo:   "#0424-1239",
		orderDate: day(2024, 4, 8),
		delivery:  day(2024, 12, 5),
		customer:  domain.CustomerInfo{Name: "TOROSLAR EDAŞ", DocumentNo: "PO-2024-T321", ContactPerson: "Zeynep Kaya"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 FL", Quantity: 2}},
		status:    "planned",
		priority:  domain.PriorityLow,
		updatedAt: day(2024, 4, 8),
		notes:     "36kV 200A 16kA Sigortalı Yük Ayırıcılı TR.Koruma Hücresi",
	},
	{
		id:        "ORD-0424A004",
		orderNo:   "#0424-1233",
		orderDate: day(2024, 3, 25),
		delivery:  day(2024, 12, 5),
		customer:  domain.CustomerInfo{Name: "ENERJİSA", DocumentNo: "PO-2024-E456", ContactPerson: "Can Demir"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 LB", Quantity: 1}},
		status:    "completed",
		priority:  domain.PriorityMedium,
		updatedAt: day(2024, 4, 17),
	},
	{
		id:        "ORD-0424A005",
		orderNo:   "#0424-1220",
		orderDate: day(2024, 3, 15),
		delivery:  day(2024, 10, 30),
		customer:  domain.CustomerInfo{Name: "OSMANİYE ELEKTRİK", DocumentNo: "PO-2024-O789", ContactPerson: "Ali Yıldız"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 FL", Quantity: 1}},
		status:    "planned",
		priority:  domain.PriorityLow,
		updatedAt: day(2024, 3, 15),
	},
	// planning board orders use the pending/approved/production vocabulary
	{
		id:        "SPR-2025-001",
		orderNo:   "#0125-0001",
		orderDate: day(2025, 1, 6),
		delivery:  day(2025, 2, 28),
		customer:  domain.CustomerInfo{Name: "İBB Elektrik", DocumentNo: "SPR-2025-001"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 CB", Quantity: 2}},
		status:    "production",
		priority:  domain.PriorityHigh,
		updatedAt: day(2025, 1, 13),
	},
	{
		id:        "SPR-2025-002",
		orderNo:   "#0125-0002",
		orderDate: day(2025, 1, 7),
		delivery:  day(2025, 3, 14),
		customer:  domain.CustomerInfo{Name: "Antalya Belediyesi", DocumentNo: "SPR-2025-002"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 LB", Quantity: 5}},
		status:    "production",
		priority:  domain.PriorityMedium,
		updatedAt: day(2025, 1, 14),
	},
	{
		id:        "SPR-2025-003",
		orderNo:   "#0125-0003",
		orderDate: day(2025, 1, 8),
		delivery:  day(2025, 3, 21),
		customer:  domain.CustomerInfo{Name: "TEDAŞ Ankara", DocumentNo: "SPR-2025-003"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 FL", Quantity: 3}},
		status:    "pending",
		priority:  domain.PriorityMedium,
		updatedAt: day(2025, 1, 8),
	},
	{
		id:        "SPR-2025-004",
		orderNo:   "#0125-0004",
		orderDate: day(2025, 1, 9),
		delivery:  day(2025, 2, 21),
		customer:  domain.CustomerInfo{Name: "Bursa Enerji", DocumentNo: "SPR-2025-004"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 MB", Quantity: 1}},
		status:    "production",
		priority:  domain.PriorityHigh,
		updatedAt: day(2025, 1, 15),
	},
	{
		id:        "SPR-2025-005",
		orderNo:   "#0125-0005",
		orderDate: day(2025, 1, 10),
		delivery:  day(2025, 4, 4),
		customer:  domain.CustomerInfo{Name: "İzmir Elektrik", DocumentNo: "SPR-2025-005"},
		cells:     []domain.Cell{{ProductTypeCode: "RM 36 CB", Quantity: 4}},
		status:    "approved",
		priority:  domain.PriorityLow,
		updatedAt: day(2025, 1, 10),
	},
}

// DemoOrders returns the demo order book. Planning aliases are mapped to
// canonical statuses; serial numbers follow the order date.
func DemoOrders() []*domain.Order {
	out := make([]*domain.Order, 0, len(demoOrders))
	for _, d := range demoOrders {
		status, err := domain.ParseStatus(d.status)
		if err != nil {
			panic(fmt.Sprintf("seed order %s: %v", d.id, err))
		}

		seq := 0
		cells := make([]domain.Cell, 0, len(d.cells))
		for _, c := range d.cells {
			serials := make([]string, 0, c.Quantity)
			for i := 0; i < c.Quantity; i++ {
				seq++
				serials = append(serials, domain.FormatSerialNumber(d.orderDate, seq))
			}
			c.SerialNumbers = serials
			cells = append(cells, c)
		}

		out = append(out, &domain.Order{
			ID:            primitive.NewObjectID(),
			OrderID:       d.id,
			OrderNo:       d.orderNo,
			OrderDate:     d.orderDate,
			DeliveryDate:  d.delivery,
			Status:        status,
			Priority:      d.priority,
			PriorityRank:  d.priority.Rank(),
			CustomerInfo:  d.customer,
			TechnicalInfo: domain.TechnicalInfo{}.WithDefaults(),
			Cells:         cells,
			Notes:         d.notes,
			CreatedAt:     d.orderDate,
			UpdatedAt:     d.updatedAt,
		})
	}
	return out
}

// TechnicalDocuments returns the RM 36 reference library
func TechnicalDocuments() []*domain.TechnicalDocument {
	return []*domain.TechnicalDocument{
		{
			DocID:    "DOC-001",
			Title:    "RM 36 CB Teknik Şartnamesi",
			Category: "şartname",
			Version:  "Rev.2.1",
			Keywords: []string{"akım trafosu", "akım trafo", "kesici", "rm 36 cb"},
			Content:  "RM 36 CB hücresinde genellikle 200-400/5-5A 5P20 7,5/15VA veya 300-600/5-5A 5P20 7,5/15VA özelliklerinde toroidal tip akım trafoları kullanılmaktadır. Canias kodları: 144866% (KAP-80/190-95) veya 142227% (KAT-85/190-95). Bu trafolar orta gerilim hücrelerinde koruma ve ölçme amacıyla kullanılır.",
		},
		{
			DocID:    "DOC-002",
			Title:    "RM 36 LB Montaj Talimatı",
			Category: "talimat",
			Version:  "Rev.1.3",
			Keywords: []string{"yük ayırıcı", "rm 36 lb", "montaj talimat"},
			Content:  "RM 36 LB hücresi montajı mekanik gövde, yük ayırıcı mekanizması ve kablo bağlantı bölmesi sırasıyla yapılır. Montaj sonrası mekanizma 5 kez açma-kapama ile kontrol edilir.",
		},
		{
			DocID:    "DOC-003",
			Title:    "Akım Trafosu Seçim Kılavuzu",
			Category: "kılavuz",
			Version:  "Rev.1.3",
			Keywords: []string{"akım trafosu", "akım trafo", "trafo seçim"},
			Content:  "Akım trafosu seçiminde primer akım, sekonder akım (1A veya 5A), doğruluk sınıfı (koruma için 5P20, ölçme için 0,5) ve yük (VA) değerleri belirlenir. Orta gerilim hücrelerinde epoksi reçine izolasyonlu toroidal tipler tercih edilir.",
		},
		{
			DocID:    "DOC-004",
			Title:    "RM 36 Serisi Bara Montaj Kılavuzu",
			Category: "kılavuz",
			Version:  "Rev.1.8",
			Keywords: []string{"bara", "bakır", "busbar"},
			Content:  "OG hücrelerde kullanılan baralar genellikle elektrolitik bakırdır. RM 36 serisi için 582mm ve 432mm uzunluklarında 40x10mm kesitinde düz bakır baralar kullanılır. Stok kodları: 109367% (582mm) ve 109363% (432mm).",
		},
		{
			DocID:    "DOC-005",
			Title:    "RM 36 Motor Teknik Özellikleri",
			Category: "teknik doküman",
			Version:  "Rev.1.2",
			Keywords: []string{"motor", "ayırıcı motoru", "24vdc", "mekanizma"},
			Content:  "RM 36 serisi hücrelerde kesici ve ayırıcılarda 24VDC motorlar standart olarak kullanılmaktadır. Özel gereksinimler için 48VDC, 110VDC ve 220VAC motorlar da mevcuttur. Çalışma süresi 3-5 saniye arasındadır.",
		},
		{
			DocID:    "DOC-006",
			Title:    "RM 36 Serisi Genel Teknik Şartname",
			Category: "şartname",
			Version:  "Rev.3.0",
			Keywords: []string{"rm 36", "hücre", "gerilim trafo"},
			Content:  "RM 36 serisi hücreler 36kV orta gerilim için tasarlanmıştır. Ana bileşenleri: kesici/yük ayırıcı, akım trafosu, gerilim trafosu, koruma rölesi ve bara sisteminden oluşur. Temel hücre tipleri: CB (Kesicili), LB (Yük Ayırıcılı), FL (Sigortalı), RMU (Ring Main Unit).",
		},
	}
}
