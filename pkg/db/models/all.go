package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Booking{},
		&Payment{},
		&Payout{},
		&Deliverable{},
		&RefundRequest{},
		&CommissionConfig{},
		&LedgerEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
