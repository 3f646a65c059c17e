package service

// SetSeatStore swaps the storage a ledger debits through.
func SetSeatStore(l *SeatLedger, s SeatStore) { l.events = s }
