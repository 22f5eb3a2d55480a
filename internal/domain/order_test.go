package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCustomer() CustomerInfo {
	return CustomerInfo{
		Name:        "BEDAŞ",
		DocumentNo:  "DOC-2024-118",
		ProjectName: "Kadıköy Dağıtım Merkezi",
	}
}

func testCells() []Cell {
	return []Cell{
		{ProductTypeCode: "RM 36 LB", Quantity: 2},
		{ProductTypeCode: "RM 36 CB", Quantity: 3},
	}
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	orderDate := time.Date(2024, time.April, 12, 9, 0, 0, 0, time.UTC)
	order, err := NewOrder("ORD-0000ABCD", "#0424-1245", testCustomer(), TechnicalInfo{}, testCells(),
		PriorityMedium, orderDate, orderDate.AddDate(0, 1, 0))
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	tests := []struct {
		name        string
		customer    CustomerInfo
		cells       []Cell
		priority    Priority
		expectError error
	}{
		{
			name:     "Valid order creation",
			customer: testCustomer(),
			cells:    testCells(),
			priority: PriorityHigh,
		},
		{
			name:        "Missing customer name",
			customer:    CustomerInfo{DocumentNo: "DOC-1"},
			cells:       testCells(),
			priority:    PriorityHigh,
			expectError: ErrMissingCustomerName,
		},
		{
			name:        "Missing document number",
			customer:    CustomerInfo{Name: "TEDAŞ"},
			cells:       testCells(),
			priority:    PriorityHigh,
			expectError: ErrMissingDocumentNo,
		},
		{
			name:        "No cells",
			customer:    testCustomer(),
			cells:       nil,
			priority:    PriorityLow,
			expectError: ErrNoCells,
		},
		{
			name:        "Zero quantity cell",
			customer:    testCustomer(),
			cells:       []Cell{{ProductTypeCode: "RM 36 FL", Quantity: 0}},
			priority:    PriorityLow,
			expectError: ErrInvalidCell,
		},
		{
			name:        "Quantity above limit",
			customer:    testCustomer(),
			cells:       []Cell{{ProductTypeCode: "RM 36 CB", Quantity: 2000000000}},
			priority:    PriorityLow,
			expectError: ErrInvalidCell,
		},
		{
			name:     "Quantity at limit",
			customer: testCustomer(),
			cells:    []Cell{{ProductTypeCode: "RM 36 CB", Quantity: MaxCellQuantity}},
			priority: PriorityLow,
		},
		{
			name:        "Invalid priority",
			customer:    testCustomer(),
			cells:       testCells(),
			priority:    Priority("urgent"),
			expectError: ErrInvalidPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrder("ORD-12345678", "#0424-0001", tt.customer, TechnicalInfo{}, tt.cells,
				tt.priority, time.Time{}, time.Time{})

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, order)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, StatusPlanned, order.Status)
			assert.False(t, order.OrderDate.IsZero())
			require.Len(t, order.DomainEvents(), 1)
			assert.Equal(t, EventOrderCreated, order.DomainEvents()[0].EventType())
		})
	}
}

func TestNewOrderAssignsSequentialSerials(t *testing.T) {
	order := newTestOrder(t)

	assert.Equal(t, []string{"SN-2404-001", "SN-2404-002"}, order.Cells[0].SerialNumbers)
	assert.Equal(t, []string{"SN-2404-003", "SN-2404-004", "SN-2404-005"}, order.Cells[1].SerialNumbers)
	assert.Len(t, order.SerialNumbers(), 5)
}

func TestNewOrderAppliesTechnicalDefaults(t *testing.T) {
	order := newTestOrder(t)

	assert.Equal(t, TechnicalInfo{
		OperatingVoltage:    "36kV",
		RatedCurrent:        "630A",
		ShortCircuitCurrent: "16kA",
		ControlVoltage:      "24 VDC",
	}, order.TechnicalInfo)

	custom := TechnicalInfo{RatedCurrent: "1250A"}.WithDefaults()
	assert.Equal(t, "1250A", custom.RatedCurrent)
	assert.Equal(t, "36kV", custom.OperatingVoltage)
}

func TestPlanningOrderView(t *testing.T) {
	order := newTestOrder(t)

	view := order.PlanningOrder()
	assert.Equal(t, "ORD-0000ABCD", view.ID)
	assert.Equal(t, "RM 36 LB", view.CellType)
	assert.Equal(t, 5, view.Quantity)
}

func TestChangeStatus(t *testing.T) {
	tests := []struct {
		name        string
		path        []Status
		next        Status
		expectError error
	}{
		{name: "planned to in_progress", next: StatusInProgress},
		{name: "planned to delayed", next: StatusDelayed},
		{name: "in_progress to completed", path: []Status{StatusInProgress}, next: StatusCompleted},
		{name: "delayed to in_progress", path: []Status{StatusDelayed}, next: StatusInProgress},
		{name: "delayed to completed", path: []Status{StatusDelayed}, next: StatusCompleted},
		{name: "planned to completed is rejected", next: StatusCompleted, expectError: ErrInvalidStatusTransition},
		{name: "same status is rejected", next: StatusPlanned, expectError: ErrInvalidStatusTransition},
		{name: "completed is terminal", path: []Status{StatusInProgress, StatusCompleted}, next: StatusDelayed, expectError: ErrOrderCompleted},
		{name: "canceled is terminal", path: []Status{StatusCanceled}, next: StatusInProgress, expectError: ErrOrderCanceled},
		{name: "unknown status", next: Status("shipped"), expectError: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := newTestOrder(t)
			for _, s := range tt.path {
				require.NoError(t, order.ChangeStatus(s, ""))
			}
			order.ClearDomainEvents()

			err := order.ChangeStatus(tt.next, "test")
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Empty(t, order.DomainEvents())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.next, order.Status)
			require.Len(t, order.DomainEvents(), 1)
			event, ok := order.DomainEvents()[0].(*OrderStatusChangedEvent)
			require.True(t, ok)
			assert.Equal(t, tt.next, event.NewStatus)
			assert.Equal(t, "test", event.Reason)

			last, ok := order.LastChange()
			require.True(t, ok)
			assert.Equal(t, tt.next, last.To)
		})
	}
}

func TestCancel(t *testing.T) {
	order := newTestOrder(t)
	order.ClearDomainEvents()

	require.NoError(t, order.ChangeStatus(StatusCanceled, "customer request"))
	assert.Equal(t, StatusCanceled, order.Status)
	require.Len(t, order.DomainEvents(), 1)
	assert.Equal(t, EventOrderCanceled, order.DomainEvents()[0].EventType())

	// Canceling twice is a no-op
	require.NoError(t, order.Cancel("again"))
	assert.Len(t, order.DomainEvents(), 1)

	completed := newTestOrder(t)
	require.NoError(t, completed.ChangeStatus(StatusInProgress, ""))
	require.NoError(t, completed.ChangeStatus(StatusCompleted, ""))
	assert.ErrorIs(t, completed.Cancel("late"), ErrOrderCompleted)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
		wantErr  bool
	}{
		{input: "planned", expected: StatusPlanned},
		{input: "IN_PROGRESS", expected: StatusInProgress},
		{input: "pending", expected: StatusPlanned},
		{input: "approved", expected: StatusPlanned},
		{input: "production", expected: StatusInProgress},
		{input: "shipped", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			status, err := ParseStatus(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestStatusDisplayText(t *testing.T) {
	assert.Equal(t, "Planlandı", StatusPlanned.DisplayText())
	assert.Equal(t, "Üretimde", StatusInProgress.DisplayText())
	assert.Equal(t, "Gecikti", StatusDelayed.DisplayText())
	assert.Equal(t, "Tamamlandı", StatusCompleted.DisplayText())
	assert.Equal(t, "İptal Edildi", StatusCanceled.DisplayText())
}

func TestFormatters(t *testing.T) {
	at := time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "#2501-0042", FormatOrderNo(at, 42))
	assert.Equal(t, "SN-2501-007", FormatSerialNumber(at, 7))
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, NewOrderID())
}

func TestOrderFilterMatches(t *testing.T) {
	order := newTestOrder(t)
	str := func(s string) *string { return &s }
	status := func(s Status) *Status { return &s }
	at := func(y int, m time.Month, d int) *time.Time {
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name    string
		filter  OrderFilter
		matches bool
	}{
		{name: "empty filter", filter: OrderFilter{}, matches: true},
		{name: "search by order number", filter: OrderFilter{Search: str("0424-12")}, matches: true},
		{name: "search by customer is case insensitive", filter: OrderFilter{Search: str("bedaş")}, matches: true},
		{name: "search miss", filter: OrderFilter{Search: str("toroslar")}, matches: false},
		{name: "second cell type", filter: OrderFilter{CellType: str("RM 36 CB")}, matches: true},
		{name: "cell type miss", filter: OrderFilter{CellType: str("RM 36 FL")}, matches: false},
		{name: "status", filter: OrderFilter{Status: status(StatusPlanned)}, matches: true},
		{name: "status miss", filter: OrderFilter{Status: status(StatusDelayed)}, matches: false},
		{name: "customer name exact", filter: OrderFilter{CustomerName: str("BEDAŞ")}, matches: true},
		{name: "customer name partial", filter: OrderFilter{CustomerName: str("BED")}, matches: false},
		{name: "inside date range", filter: OrderFilter{DateFrom: at(2024, time.April, 1), DateTo: at(2024, time.April, 30)}, matches: true},
		{name: "before date range", filter: OrderFilter{DateFrom: at(2024, time.May, 1)}, matches: false},
		{name: "active only", filter: OrderFilter{ActiveOnly: true}, matches: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, tt.filter.Matches(order))
		})
	}
}

func TestIsLate(t *testing.T) {
	order := newTestOrder(t)
	assert.False(t, order.IsLate(order.DeliveryDate.Add(-time.Hour)))
	assert.True(t, order.IsLate(order.DeliveryDate.Add(time.Hour)))

	require.NoError(t, order.Cancel(""))
	assert.False(t, order.IsLate(order.DeliveryDate.Add(time.Hour)))
}

func TestPagination(t *testing.T) {
	assert.Equal(t, int64(20), Pagination{Page: 3, PageSize: 10}.Skip())
	assert.Equal(t, int64(0), Pagination{Page: 3}.Skip())
	assert.Equal(t, int64(10), DefaultPagination().Limit())
}
