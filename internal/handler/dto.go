package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/service"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/settlement"
)

type reservationResponse struct {
	ID          int64  `json:"id"`
	BookingRef  string `json:"bookingRef"`
	CustomerID  int64  `json:"customerId"`
	RoomID      int64  `json:"roomId"`
	RoomClassID int64  `json:"roomClassId"`

	CheckInDate    string  `json:"checkInDate"`
	CheckOutDate   string  `json:"checkOutDate"`
	ActualCheckIn  *string `json:"actualCheckIn,omitempty"`
	ActualCheckOut *string `json:"actualCheckOut,omitempty"`

	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`

	BaseRoomRate  decimal.Decimal `json:"baseRoomRate"`
	RoomCharge    decimal.Decimal `json:"roomCharge"`
	ExtraCharges  decimal.Decimal `json:"extraCharges"`
	Discount      decimal.Decimal `json:"discount"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Tax           decimal.Decimal `json:"tax"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AdvancePaid   decimal.Decimal `json:"advancePaid"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`

	PaymentStatus      string  `json:"paymentStatus"`
	Status             string  `json:"status"`
	Remarks            string  `json:"remarks,omitempty"`
	CancellationReason string  `json:"cancellationReason,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"`
	UpdatedAt          string  `json:"updatedAt"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toReservationResponse(r model.Reservation) reservationResponse {
	return reservationResponse{
		ID:                 r.ID,
		BookingRef:         r.BookingRef,
		CustomerID:         r.CustomerID,
		RoomID:             r.RoomID,
		RoomClassID:        r.RoomClassID,
		CheckInDate:        formatTime(r.CheckInDate),
		CheckOutDate:       formatTime(r.CheckOutDate),
		ActualCheckIn:      formatTimePtr(r.ActualCheckIn),
		ActualCheckOut:     formatTimePtr(r.ActualCheckOut),
		Adults:             r.Adults,
		Children:           r.Children,
		Infants:            r.Infants,
		BaseRoomRate:       r.BaseRoomRate,
		RoomCharge:         r.RoomCharge,
		ExtraCharges:       r.ExtraCharges,
		Discount:           r.Discount,
		ServiceCharge:      r.ServiceCharge,
		Tax:                r.Tax,
		TotalAmount:        r.TotalAmount,
		AdvancePaid:        r.AdvancePaid,
		BalanceDue:         r.BalanceDue,
		PaymentStatus:      string(r.PaymentStatus),
		Status:             string(r.Status),
		Remarks:            r.Remarks,
		CancellationReason: r.CancellationReason,
		CancelledAt:        formatTimePtr(r.CancelledAt),
		UpdatedAt:          formatTime(r.UpdatedAt),
	}
}

type roomResponse struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

func toRoomResponse(r model.Room) roomResponse {
	return roomResponse{ID: r.ID, Number: r.Number, Status: string(r.Status)}
}

type customerResponse struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type summaryResponse struct {
	TransitionID          string            `json:"transitionId"`
	Totals                settlement.Totals `json:"totals"`
	RoomNumber            string            `json:"roomNumber"`
	RoomStatus            string            `json:"roomStatus"`
	StaleRoomStatusHealed bool              `json:"staleRoomStatusHealed,omitempty"`
	RoomStatusOverridden  bool              `json:"roomStatusOverridden,omitempty"`
	PaymentID             *int64            `json:"paymentId,omitempty"`
	CashFlowID            *int64            `json:"cashFlowId,omitempty"`
	IncidentID            *int64            `json:"incidentId,omitempty"`
}

type transitionResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Customer    *customerResponse   `json:"customer,omitempty"`
	Summary     summaryResponse     `json:"summary"`
}

func toTransitionResponse(res *service.Result) transitionResponse {
	resp := transitionResponse{
		Reservation: toReservationResponse(res.Reservation),
		Summary: summaryResponse{
			TransitionID:          res.Summary.TransitionID,
			Totals:                res.Summary.Totals,
			RoomNumber:            res.Summary.RoomNumber,
			RoomStatus:            string(res.Summary.RoomStatus),
			StaleRoomStatusHealed: res.Summary.StaleRoomStatusHealed,
			RoomStatusOverridden:  res.Summary.RoomStatusOverridden,
			PaymentID:             res.Summary.PaymentID,
			CashFlowID:            res.Summary.CashFlowID,
			IncidentID:            res.Summary.IncidentID,
		},
	}
	if c := res.Customer; c != nil {
		resp.Customer = &customerResponse{
			ID:       c.ID,
			FullName: c.FullName(),
			Email:    c.Email,
			Phone:    c.Phone,
		}
	}
	return resp
}

type reservationViewResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Totals      settlement.Totals   `json:"totals"`
}

type checkInPreviewResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Room        roomResponse        `json:"room"`
	EarlyFee    decimal.Decimal     `json:"earlyCheckInFee"`
	LateFee     decimal.Decimal     `json:"lateCheckInFee"`
	IsEarly     bool                `json:"isEarly"`
	IsLate      bool                `json:"isLate"`
	Projected   settlement.Totals   `json:"projected"`
}

func toCheckInPreviewResponse(p *service.CheckInPreview) checkInPreviewResponse {
	return checkInPreviewResponse{
		Reservation: toReservationResponse(p.Reservation),
		Room:        toRoomResponse(p.Room),
		EarlyFee:    p.EarlyFee,
		LateFee:     p.LateFee,
		IsEarly:     p.IsEarly,
		IsLate:      p.IsLate,
		Projected:   p.Projected,
	}
}

type lineItemResponse struct {
	Source      string          `json:"source"`
	Reference   string          `json:"reference,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type checkOutPreviewResponse struct {
	Reservation      reservationResponse `json:"reservation"`
	Room             roomResponse        `json:"room"`
	Ancillary        []lineItemResponse  `json:"ancillary"`
	AncillaryTotal   decimal.Decimal     `json:"ancillaryTotal"`
	LateCheckoutFee  decimal.Decimal     `json:"lateCheckoutFee"`
	CheckoutBoundary string              `json:"checkoutBoundary"`
	ProjectedBalance decimal.Decimal     `json:"projectedBalance"`
	Projected        settlement.Totals   `json:"projected"`
}

func toCheckOutPreviewResponse(p *service.CheckOutPreview) checkOutPreviewResponse {
	items := make([]lineItemResponse, 0, len(p.Ancillary))
	for _, it := range p.Ancillary {
		items = append(items, lineItemResponse{
			Source:      it.Source,
			Reference:   it.Reference,
			Description: it.Description,
			Amount:      it.Amount,
		})
	}
	return checkOutPreviewResponse{
		Reservation:      toReservationResponse(p.Reservation),
		Room:             toRoomResponse(p.Room),
		Ancillary:        items,
		AncillaryTotal:   p.AncillaryTotal,
		LateCheckoutFee:  p.LateCheckoutFee,
		CheckoutBoundary: formatTime(p.CheckoutBoundary),
		ProjectedBalance: p.ProjectedBalance,
		Projected:        p.Projected,
	}
}

type paymentResponse struct {
	ID           int64           `json:"id"`
	TransitionID string          `json:"transitionId"`
	StaffID      int64           `json:"staffId"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    string          `json:"createdAt"`
}

type cashFlowResponse struct {
	ID           int64           `json:"id"`
	TransitionID string          `json:"transitionId"`
	StaffID      int64           `json:"staffId"`
	Type         string          `json:"type"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	CreatedAt    string          `json:"createdAt"`
}

type incidentResponse struct {
	ID           int64           `json:"id"`
	TransitionID string          `json:"transitionId"`
	RoomID       int64           `json:"roomId"`
	StaffID      int64           `json:"staffId"`
	Kind         string          `json:"kind"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	CreatedAt    string          `json:"createdAt"`
}

type ledgerResponse struct {
	Payments  []paymentResponse  `json:"payments"`
	CashFlows []cashFlowResponse `json:"cashFlows"`
	Incidents []incidentResponse `json:"incidents"`
}

func toLedgerResponse(l *model.Ledger) ledgerResponse {
	resp := ledgerResponse{
		Payments:  make([]paymentResponse, 0, len(l.Payments)),
		CashFlows: make([]cashFlowResponse, 0, len(l.CashFlows)),
		Incidents: make([]incidentResponse, 0, len(l.Incidents)),
	}
	for _, p := range l.Payments {
		resp.Payments = append(resp.Payments, paymentResponse{
			ID:           p.ID,
			TransitionID: p.TransitionID,
			StaffID:      p.StaffID,
			Amount:       p.Amount,
			Method:       string(p.Method),
			Type:         string(p.Type),
			Status:       p.Status,
			Notes:        p.Notes,
			CreatedAt:    formatTime(p.CreatedAt),
		})
	}
	for _, cf := range l.CashFlows {
		resp.CashFlows = append(resp.CashFlows, cashFlowResponse{
			ID:           cf.ID,
			TransitionID: cf.TransitionID,
			StaffID:      cf.StaffID,
			Type:         string(cf.Type),
			Category:     cf.Category,
			Amount:       cf.Amount,
			Description:  cf.Description,
			CreatedAt:    formatTime(cf.CreatedAt),
		})
	}
	for _, inc := range l.Incidents {
		resp.Incidents = append(resp.Incidents, incidentResponse{
			ID:           inc.ID,
			TransitionID: inc.TransitionID,
			RoomID:       inc.RoomID,
			StaffID:      inc.StaffID,
			Kind:         inc.Kind,
			Description:  inc.Description,
			Amount:       inc.Amount,
			Status:       string(inc.Status),
			CreatedAt:    formatTime(inc.CreatedAt),
		})
	}
	return resp
}
