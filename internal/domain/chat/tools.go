package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/carebridge/hms/internal/domain/appointment"
	"github.com/carebridge/hms/internal/domain/doctor"
	"github.com/carebridge/hms/internal/domain/pharmacy"
)

// ToolDispatcher executes assistant tool calls against the hospital services
// on behalf of the authenticated patient.
type ToolDispatcher struct {
	doctors      *doctor.Service
	appointments *appointment.Service
	pharmacy     *pharmacy.Service
}

func NewToolDispatcher(doctors *doctor.Service, appointments *appointment.Service, pharmacy *pharmacy.Service) *ToolDispatcher {
	return &ToolDispatcher{doctors: doctors, appointments: appointments, pharmacy: pharmacy}
}

func jsonSchema(properties map[string]interface{}, required ...string) json.RawMessage {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	b, _ := json.Marshal(schema)
	return b
}

// Tools returns the schemas advertised to the gateway.
func (d *ToolDispatcher) Tools() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "list_doctors",
				Description: "List doctors, optionally filtered by specialization.",
				Parameters: jsonSchema(map[string]interface{}{
					"specialization": map[string]interface{}{
						"type":        "string",
						"description": "Medical specialization to filter by, e.g. Cardiology",
					},
				}),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_available_slots",
				Description: "Get a doctor's free appointment slots for a given day.",
				Parameters: jsonSchema(map[string]interface{}{
					"doctor_id": map[string]interface{}{"type": "string"},
					"date":      map[string]interface{}{"type": "string", "description": "Day in YYYY-MM-DD format"},
				}, "doctor_id", "date"),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "book_appointment",
				Description: "Book an appointment for the current patient.",
				Parameters: jsonSchema(map[string]interface{}{
					"doctor_id": map[string]interface{}{"type": "string"},
					"date":      map[string]interface{}{"type": "string", "description": "Day in YYYY-MM-DD format"},
					"time_slot": map[string]interface{}{"type": "string", "description": "Slot such as 09:30"},
					"reason":    map[string]interface{}{"type": "string"},
				}, "doctor_id", "date", "time_slot"),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "list_my_appointments",
				Description: "List the current patient's appointments.",
				Parameters:  jsonSchema(map[string]interface{}{}),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "cancel_appointment",
				Description: "Cancel one of the current patient's appointments.",
				Parameters: jsonSchema(map[string]interface{}{
					"appointment_id": map[string]interface{}{"type": "string"},
				}, "appointment_id"),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "search_medicines",
				Description: "Search the pharmacy catalogue by medicine name.",
				Parameters: jsonSchema(map[string]interface{}{
					"name": map[string]interface{}{"type": "string"},
				}, "name"),
			},
		},
	}
}

// errorResult encodes a tool failure as a payload the model can read.
// Failures are surfaced, never retried.
func errorResult(err error) string {
	b, _ := json.Marshal(map[string]interface{}{"success": false, "error": err.Error()})
	return string(b)
}

func okResult(payload map[string]interface{}) string {
	payload["success"] = true
	b, err := json.Marshal(payload)
	if err != nil {
		return errorResult(err)
	}
	return string(b)
}

// Execute runs a single tool call. The returned string is always a JSON
// payload; errors are embedded so the model can relay them to the user.
func (d *ToolDispatcher) Execute(ctx context.Context, patientID uuid.UUID, name, args string) string {
	switch name {
	case "list_doctors":
		return d.listDoctors(ctx, args)
	case "get_available_slots":
		return d.availableSlots(ctx, args)
	case "book_appointment":
		return d.bookAppointment(ctx, patientID, args)
	case "list_my_appointments":
		return d.listAppointments(ctx, patientID)
	case "cancel_appointment":
		return d.cancelAppointment(ctx, patientID, args)
	case "search_medicines":
		return d.searchMedicines(ctx, args)
	default:
		return errorResult(fmt.Errorf("unknown tool: %s", name))
	}
}

func (d *ToolDispatcher) listDoctors(ctx context.Context, args string) string {
	var req struct {
		Specialization string `json:"specialization"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return errorResult(fmt.Errorf("invalid arguments: %w", err))
	}
	params := map[string]string{}
	if req.Specialization != "" {
		params["specialization"] = req.Specialization
	}
	doctors, _, err := d.doctors.Search(ctx, params, 50, 0)
	if err != nil {
		return errorResult(err)
	}
	return okResult(map[string]interface{}{"doctors": doctors})
}

func (d *ToolDispatcher) availableSlots(ctx context.Context, args string) string {
	var req struct {
		DoctorID string `json:"doctor_id"`
		Date     string `json:"date"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return errorResult(fmt.Errorf("invalid arguments: %w", err))
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return errorResult(fmt.Errorf("invalid doctor_id"))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return errorResult(fmt.Errorf("invalid date, expected YYYY-MM-DD"))
	}
	slots, err := d.appointments.AvailableSlots(ctx, doctorID, date)
	if err != nil {
		return errorResult(err)
	}
	return okResult(map[string]interface{}{"date": req.Date, "slots": slots})
}

func (d *ToolDispatcher) bookAppointment(ctx context.Context, patientID uuid.UUID, args string) string {
	if patientID == uuid.Nil {
		return errorResult(fmt.Errorf("patient not registered; no patient record is linked to this account"))
	}
	var req struct {
		DoctorID string `json:"doctor_id"`
		Date     string `json:"date"`
		TimeSlot string `json:"time_slot"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return errorResult(fmt.Errorf("invalid arguments: %w", err))
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return errorResult(fmt.Errorf("invalid doctor_id"))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return errorResult(fmt.Errorf("invalid date, expected YYYY-MM-DD"))
	}

	a := &appointment.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		TimeSlot:  req.TimeSlot,
	}
	if req.Reason != "" {
		a.Reason = &req.Reason
	}
	if err := d.appointments.Book(ctx, a); err != nil {
		return errorResult(err)
	}
	return okResult(map[string]interface{}{"appointment": a})
}

func (d *ToolDispatcher) listAppointments(ctx context.Context, patientID uuid.UUID) string {
	if patientID == uuid.Nil {
		return errorResult(fmt.Errorf("patient not registered; no patient record is linked to this account"))
	}
	appts, _, err := d.appointments.ListByPatient(ctx, patientID, 50, 0)
	if err != nil {
		return errorResult(err)
	}
	return okResult(map[string]interface{}{"appointments": appts})
}

func (d *ToolDispatcher) cancelAppointment(ctx context.Context, patientID uuid.UUID, args string) string {
	if patientID == uuid.Nil {
		return errorResult(fmt.Errorf("patient not registered; no patient record is linked to this account"))
	}
	var req struct {
		AppointmentID string `json:"appointment_id"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return errorResult(fmt.Errorf("invalid arguments: %w", err))
	}
	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return errorResult(fmt.Errorf("invalid appointment_id"))
	}

	a, err := d.appointments.Get(ctx, id)
	if err != nil {
		return errorResult(fmt.Errorf("appointment not found"))
	}
	if a.PatientID != patientID {
		return errorResult(fmt.Errorf("appointment does not belong to this patient"))
	}

	updated, err := d.appointments.UpdateStatus(ctx, id, appointment.StatusCancelled)
	if err != nil {
		return errorResult(err)
	}
	return okResult(map[string]interface{}{"appointment": updated})
}

func (d *ToolDispatcher) searchMedicines(ctx context.Context, args string) string {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return errorResult(fmt.Errorf("invalid arguments: %w", err))
	}
	medicines, _, err := d.pharmacy.SearchMedicines(ctx, map[string]string{"name": req.Name}, 20, 0)
	if err != nil {
		return errorResult(err)
	}
	return okResult(map[string]interface{}{"medicines": medicines})
}
