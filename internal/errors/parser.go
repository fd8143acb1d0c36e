package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/service"
	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// domainErrors maps service sentinels to their HTTP response. Typed errors
// unwrap to these, so their detailed message is used instead of the default.
var domainErrors = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{service.ErrInvalidQuantity, http.StatusBadRequest, CartInvalidQuantity, ""},
	{service.ErrInsufficientStock, http.StatusBadRequest, StockInsufficient, ""},
	{service.ErrInvalidOptionSelection, http.StatusBadRequest, ProductOptionMismatch, ""},
	{service.ErrEmptyCart, http.StatusBadRequest, CartEmpty, "장바구니가 비어 있습니다"},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest, PaymentInvalidMethod, "지원하지 않는 결제 수단입니다"},
	{service.ErrProductDeleted, http.StatusBadRequest, ProductDeleted, "판매가 중단된 상품입니다"},
	{service.ErrProductNotFound, http.StatusNotFound, ProductNotFound, "상품을 찾을 수 없습니다"},
	{service.ErrCartChanged, http.StatusConflict, CartChanged, "장바구니가 동시에 변경되었습니다. 장바구니를 확인 후 다시 시도해주세요"},
	{service.ErrCartItemNotFound, http.StatusNotFound, CartItemNotFound, "장바구니 항목을 찾을 수 없습니다"},
	{service.ErrOrderNotFound, http.StatusNotFound, OrderNotFound, "주문을 찾을 수 없습니다"},
	{service.ErrAddressNotFound, http.StatusNotFound, AddressNotFound, "배송지를 찾을 수 없습니다"},
	{service.ErrAddressIncomplete, http.StatusBadRequest, ValidationRequired, "수령인, 연락처, 주소는 필수입니다"},
	{service.ErrInvalidTransition, http.StatusConflict, OrderInvalidTransition, ""},
	{service.ErrReconciliationPending, http.StatusConflict, OrderReconciliationPending, "결제 확인 중인 주문입니다. 잠시 후 다시 시도해주세요"},
	{service.ErrNotAwaitingReconcile, http.StatusConflict, OrderNotAwaitingReconcile, "정산 대기 중인 주문이 아닙니다"},
	{service.ErrPaymentNotPending, http.StatusConflict, PaymentNotPending, "승인 대기 중인 결제가 아닙니다"},
	{service.ErrRefundFailed, http.StatusBadGateway, PaymentRefundFailed, ""},
	{service.ErrPaymentDeclined, http.StatusBadGateway, PaymentDeclined, "결제가 거절되었습니다"},
	{service.ErrGatewayTimeout, http.StatusGatewayTimeout, PaymentTimeout, "결제사 응답이 지연되고 있습니다. 잠시 후 주문 상태를 확인해주세요"},
}

// ParseError 에러를 HTTP 상태 코드와 사용자 메시지로 변환
// 보안상 민감한 정보는 숨기되, 사용자가 문제를 해결할 수 있는 정보 제공
func ParseError(err error) (int, ErrorInfo) {
	if err == nil {
		return http.StatusInternalServerError, ErrorInfo{
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	// 1. 도메인 에러
	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			message := d.message
			if message == "" {
				message = detailMessage(err, d.target)
			}
			return d.status, ErrorInfo{Code: d.code, Message: message}
		}
	}

	// 2. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, ErrorInfo{
			Code:    ResourceNotFound,
			Message: "요청한 데이터를 찾을 수 없습니다",
		}
	}

	errLower := strings.ToLower(err.Error())

	// 3. PostgreSQL 제약 조건 위반
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return http.StatusConflict, ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "이미 존재하는 데이터입니다",
		}
	}
	if strings.Contains(errLower, "check constraint") {
		if strings.Contains(errLower, "stock") {
			return http.StatusConflict, ErrorInfo{
				Code:    StockInsufficient,
				Message: "재고가 부족합니다",
			}
		}
		return http.StatusBadRequest, ErrorInfo{
			Code:    ValidationInvalidInput,
			Message: "입력값이 유효하지 않습니다",
		}
	}

	// 4. 네트워크/연결 에러
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") {
		return http.StatusServiceUnavailable, ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}

	// 5. 기본 내부 서버 오류
	return http.StatusInternalServerError, ErrorInfo{
		Code:    InternalServerError,
		Message: "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요",
	}
}

// detailMessage returns the message of the typed error that carries target,
// dropping wrapping context such as "cart item 3: ".
func detailMessage(err, target error) string {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr.Error()
	}
	var optionErr *service.OptionMismatchError
	if errors.As(err, &optionErr) {
		return optionErr.Error()
	}
	var transitionErr *service.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return transitionErr.Error()
	}
	var refundErr *service.RefundFailedError
	if errors.As(err, &refundErr) {
		if refundErr.Unknown {
			return service.ErrRefundFailed.Error() + " (환불 결과 확인 중)"
		}
		return service.ErrRefundFailed.Error()
	}
	return target.Error()
}
