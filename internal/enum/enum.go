package enum

// ── Group A: Session state machine ──

const (
	SessionStateLoaded        = "LOADED"
	SessionStateDirty         = "DIRTY"
	SessionStateValidated     = "VALIDATED"
	SessionStatePersisting    = "PERSISTING"
	SessionStatePersisted     = "PERSISTED"
	SessionStatePersistFailed = "PERSIST_FAILED"
)

// ── Group B: Persistence backends ──

const (
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
)

// ── Group C: Realtime event types ──

const (
	EventPositionMoved      = "position.moved"
	EventPartitionReordered = "partition.reordered"
	EventSessionState       = "session.state"
	EventSessionClosed      = "session.closed"
)

// ── Group D: Catalog classification values (food package wizard) ──

const (
	SuperfastYes = "1"
	SuperfastNo  = "0"
)

const (
	MealTimeBreakfast = "breakfast"
	MealTimeLunch     = "lunch"
	MealTimeDinner    = "dinner"
	MealTimeHiTea     = "hi_tea"
)

const (
	DietVeg    = "veg"
	DietNonVeg = "non_veg"
)
