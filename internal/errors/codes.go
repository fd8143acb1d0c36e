package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // 토큰 만료
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // 접근 권한 없음
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // 권한 정보 없음

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // 잘못된 ID
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // 범위 초과
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목
	ValidationInvalidStatus = "VALIDATION_INVALID_STATUS" // 잘못된 상태값

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 상품/재고 (PRODUCT_, STOCK_) ====================
	ProductNotFound       = "PRODUCT_NOT_FOUND"       // 상품 없음
	ProductDeleted        = "PRODUCT_DELETED"         // 판매 중단 상품
	ProductOptionMismatch = "PRODUCT_OPTION_MISMATCH" // 옵션 선택 오류
	StockInsufficient     = "STOCK_INSUFFICIENT"      // 재고 부족
	AddressNotFound       = "ADDRESS_NOT_FOUND"       // 배송지 없음

	// ==================== 장바구니 (CART_) ====================
	CartEmpty           = "CART_EMPTY"            // 장바구니 비어 있음
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"   // 장바구니 항목 없음
	CartInvalidQuantity = "CART_INVALID_QUANTITY" // 수량 범위 오류
	CartChanged         = "CART_CHANGED"          // 장바구니 동시 변경

	// ==================== 주문 (ORDER_) ====================
	OrderNotFound              = "ORDER_NOT_FOUND"              // 주문 없음
	OrderInvalidTransition     = "ORDER_INVALID_TRANSITION"     // 허용되지 않는 상태 변경
	OrderReconciliationPending = "ORDER_RECONCILIATION_PENDING" // 수동 정산 대기
	OrderNotAwaitingReconcile  = "ORDER_NOT_AWAITING_RECONCILE" // 정산 대상 아님
	OrderIdempotencyConflict   = "ORDER_IDEMPOTENCY_CONFLICT"   // 동일 요청 처리 중

	// ==================== 결제 (PAYMENT_) ====================
	PaymentInvalidMethod = "PAYMENT_INVALID_METHOD" // 지원하지 않는 결제 수단
	PaymentNotPending    = "PAYMENT_NOT_PENDING"    // 승인 대기 중인 결제 아님
	PaymentDeclined      = "PAYMENT_DECLINED"       // 결제 거절
	PaymentRefundFailed  = "PAYMENT_REFUND_FAILED"  // 환불 실패
	PaymentTimeout       = "PAYMENT_TIMEOUT"        // 결제사 응답 지연

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
