package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Access ────────────────────────────────────────────────────────
	ErrAccessDenied         ErrCode = "ACCESS_DENIED"
	ErrScheduleClosed       ErrCode = "SCHEDULE_CLOSED"
	ErrAttemptLimitReached  ErrCode = "ATTEMPT_LIMIT_REACHED"
	ErrInsufficientBalance  ErrCode = "INSUFFICIENT_BALANCE"
	ErrSubscriptionRequired ErrCode = "SUBSCRIPTION_REQUIRED"

	// ─── Attempt ───────────────────────────────────────────────────────
	ErrExamNotAvailable      ErrCode = "EXAM_NOT_AVAILABLE"
	ErrSessionNotFound       ErrCode = "SESSION_NOT_FOUND"
	ErrResultsNotReady       ErrCode = "RESULTS_NOT_READY"
	ErrLeaderboardHidden     ErrCode = "LEADERBOARD_HIDDEN"
	ErrQuestionBankExhausted ErrCode = "QUESTION_BANK_EXHAUSTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Access ────────────────────────────────────────────────────────
	case ErrAccessDenied:
		return "Anda tidak terdaftar pada jadwal ujian ini."
	case ErrScheduleClosed:
		return "Jadwal ujian ini sedang tidak dibuka."
	case ErrAttemptLimitReached:
		return "Batas percobaan untuk ujian ini sudah tercapai."
	case ErrInsufficientBalance:
		return "Saldo poin Anda tidak cukup untuk menukarkan ujian ini."
	case ErrSubscriptionRequired:
		return "Ujian ini memerlukan langganan aktif."

	// ─── Attempt ───────────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "Ujian ini saat ini tidak tersedia."
	case ErrSessionNotFound:
		return "Sesi ujian tidak ditemukan."
	case ErrResultsNotReady:
		return "Hasil belum tersedia sampai ujian selesai."
	case ErrLeaderboardHidden:
		return "Papan peringkat tidak diaktifkan untuk ujian ini."
	case ErrQuestionBankExhausted:
		return "Bank soal tidak memiliki cukup soal untuk ujian ini."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
