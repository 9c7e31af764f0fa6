package models

// SetAfterFactsDeleted installs fn between the delete and the insert of every
// submission and returns a func restoring the previous hook.
func SetAfterFactsDeleted(fn func(storeId int, period string)) func() {
	prev := afterFactsDeleted
	afterFactsDeleted = fn
	return func() { afterFactsDeleted = prev }
}
