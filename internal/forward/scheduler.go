package forward

import "time"

// Scheduler は遅延実行を予約する。
type Scheduler interface {
	// AfterFunc はdだけ待ってからfnを別のgoroutineで実行する。
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler はtime.AfterFuncによるScheduler。
type TimerScheduler struct{}

// AfterFunc はScheduler.AfterFuncを実装する。
func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// RetryPolicy は再試行の上限と間隔。
type RetryPolicy struct {
	// MaxAttempts は送信試行の最大回数（初回を含む）。
	MaxAttempts int
	// Interval は再試行間隔の単位。n回目の失敗後は n*Interval 待つ。
	Interval time.Duration
}

// DefaultRetryPolicy は3回まで試行し、5秒、10秒と間隔を空ける。
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Interval: 5 * time.Second}

// Delay はattempt回目の試行が失敗した後に待つ時間を返す。
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.Interval
}

// Exhausted はattempt回試行した時点で上限に達したかを返す。
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
