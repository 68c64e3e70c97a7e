package events

// Taxonomía cerrada de eventos de integración. Los contratos son planos,
// NO entidades del dominio.
const (
	// Producidos por este servicio.
	TypeRepairStarted  = "execution.repair-started"
	TypeRepairFinished = "execution.repair-finished"
	TypeDelivered      = "execution.delivered"

	// Consumidos desde otros servicios.
	TypeOSBudgetApproved = "os.budget-approved"
	TypePaymentConfirmed = "billing.payment-confirmed"

	// Reservados en la taxonomía; este servicio no registra handler.
	TypeOSStatusChanged = "os.status-changed"
	TypePaymentFailed   = "billing.payment-failed"
)
