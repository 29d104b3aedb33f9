package templates

import (
	"fmt"
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
)

const (
	slotsPerRow       = 4
	maxRetrySlots     = 6
	maxSlotSuggestion = 4
)

const appointmentTemplates = `
{{define "welcome_provinces"}}*Reservar Turno*

Te ayudo a agendar un turno en nuestras sucursales.

*Seleccioná tu provincia:*
{{join .Lines "\n"}}

_Escribí el número o nombre de tu provincia_{{end}}

{{define "province_not_recognized"}}No reconocí esa provincia.

*Provincias disponibles:*
{{join .Lines "\n"}}

_Escribí el número (1-{{len .Lines}}) o el nombre_{{end}}

{{define "no_branches"}}No tenemos sucursales activas en {{.}} en este momento.

_Escribí "volver" para elegir otra provincia_{{end}}

{{define "branch_selection"}}Sucursales en *{{.Title}}*:

{{join .Lines "\n\n"}}

_Escribí el número o nombre de la sucursal_{{end}}

{{define "branch_not_recognized"}}No reconocí esa sucursal.

*Opciones:*
{{join .Lines "\n"}}

_Escribí el número o "volver" para cambiar provincia_{{end}}

{{define "service_selection"}}*Servicios disponibles:*

{{join .Lines "\n\n"}}

Podés elegir *varios servicios*.
_Escribí el número de cada servicio y después "listo"_{{end}}

{{define "service_added"}}Agregado: *{{.Title}}*

*Servicios seleccionados:*
{{join .Lines "\n"}}

_Escribí otro número para agregar más, o "listo" para continuar_{{end}}

{{define "service_not_recognized"}}No reconocí ese servicio.

*Opciones:*
{{join .Lines "\n"}}

_Escribí el número o "listo" para continuar_{{end}}

{{define "date_selection"}}*Elegí el día:*

{{join .Lines "\n"}}

_Escribí el número o la fecha (ej: 15/01)_{{end}}

{{define "date_not_recognized"}}No reconocí esa fecha.

*Días disponibles:*
{{join .Lines "\n"}}

_Escribí el número (1-{{len .Lines}})_{{end}}

{{define "time_selection"}}*Horarios disponibles - {{.Title}}:*

{{join .Lines "\n"}}

_Escribí el número o la hora (ej: 10:30)_{{end}}

{{define "no_slots"}}No hay horarios disponibles para el {{.}}.

_Escribí "volver" para elegir otro día_{{end}}

{{define "time_not_recognized"}}No reconocí ese horario.

*Horarios:*
{{join .Lines "  |  "}}{{if .More}}
_...y {{.More}} más_{{end}}

_Escribí el número o la hora_{{end}}

{{define "slot_unavailable"}}El horario {{.Title}} ya está ocupado.

*Horarios cercanos disponibles:*
{{join .Lines ", "}}

_Escribí otro horario o "volver" para otro día_{{end}}

{{define "confirmation_summary"}}*Resumen de tu turno:*

📍 Sucursal: *{{.Branch}}*
📅 Fecha: *{{.Date}}*
🕐 Hora: *{{.Time}}*
👤 Nombre: *{{.Name}}*

*Servicios:*
{{join .Services "\n"}}

💰 *Total estimado: {{.Total}}*

_Escribí "CONFIRMAR" para reservar o "cancelar" para anular_{{end}}

{{define "appointment_success"}}*TURNO CONFIRMADO* ✅

Tu turno ha sido reservado con éxito.

Sucursal: *{{.Branch}}*
Fecha: *{{.Date}}*
Hora: *{{.Time}}*

_Te esperamos! Recordá llegar 5 minutos antes._

Si necesitás cancelar o modificar, contactanos por este medio.{{end}}

{{define "appointment_error"}}Hubo un problema al crear el turno.

_{{.}}_

_Escribí "CONFIRMAR" para intentar de nuevo o "cancelar" para anular_{{end}}
`

type listView struct {
	Title string
	Lines []string
	More  int
}

func provinceLines(provinces []appointments.Province) []string {
	names := make([]string, len(provinces))
	for i, p := range provinces {
		names[i] = p.Name
	}
	return numbered(names)
}

// WelcomeAndProvinces opens the booking flow with the province menu.
func WelcomeAndProvinces(provinces []appointments.Province) string {
	return render("welcome_provinces", listView{Lines: provinceLines(provinces)})
}

// ProvinceNotRecognized re-shows the province menu.
func ProvinceNotRecognized(provinces []appointments.Province) string {
	return render("province_not_recognized", listView{Lines: provinceLines(provinces)})
}

// BranchSelection lists the branches of a province with their addresses.
func BranchSelection(provinceName string, branches []appointments.Branch) string {
	if len(branches) == 0 {
		return render("no_branches", provinceName)
	}
	lines := make([]string, len(branches))
	for i, b := range branches {
		lines[i] = fmt.Sprintf("%d. *%s*\n   📍 %s", i+1, b.Name, b.Address)
	}
	return render("branch_selection", listView{Title: provinceName, Lines: lines})
}

// BranchNotRecognized re-shows the branch names.
func BranchNotRecognized(branches []appointments.Branch) string {
	names := make([]string, len(branches))
	for i, b := range branches {
		names[i] = b.Name
	}
	return render("branch_not_recognized", listView{Lines: numbered(names)})
}

// ServiceSelection shows the service catalog for multi-selection.
func ServiceSelection(services []appointments.ServiceOption) string {
	lines := make([]string, len(services))
	for i, s := range services {
		lines[i] = fmt.Sprintf("%d. *%s* - %s\n   _%d min_", i+1, s.Name, appointments.FormatPrice(s.Price), s.DurationMinutes)
	}
	return render("service_selection", listView{Lines: lines})
}

func serviceNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := appointments.CatalogByID(id); ok {
			names = append(names, s.Name)
		}
	}
	return names
}

// ServiceAdded confirms the services just added and lists the whole selection.
func ServiceAdded(added, selected []string) string {
	return render("service_added", listView{
		Title: strings.Join(serviceNames(added), "*, *"),
		Lines: bullets(serviceNames(selected)),
	})
}

// ServiceNotRecognized re-shows the service names.
func ServiceNotRecognized(services []appointments.ServiceOption) string {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = s.Name
	}
	return render("service_not_recognized", listView{Lines: numbered(names)})
}

// NoServicesSelected rejects "listo" with an empty selection.
func NoServicesSelected() string {
	return "Tenés que elegir al menos un servicio.\n\n_Escribí el número del servicio que querés_"
}

func dateLines(dates []appointments.AvailableDate) []string {
	names := make([]string, len(dates))
	for i, d := range dates {
		names[i] = d.DayName
	}
	return numbered(names)
}

// DateSelection lists the bookable days.
func DateSelection(dates []appointments.AvailableDate) string {
	if len(dates) == 0 {
		return NoDatesAvailable()
	}
	return render("date_selection", listView{Lines: dateLines(dates)})
}

// DateNotRecognized re-shows the bookable days.
func DateNotRecognized(dates []appointments.AvailableDate) string {
	if len(dates) == 0 {
		return NoDatesAvailable()
	}
	return render("date_not_recognized", listView{Lines: dateLines(dates)})
}

// NoDatesAvailable is shown when no upcoming day fits the selected services.
func NoDatesAvailable() string {
	return "No hay días con horarios libres para esos servicios en los próximos días.\n\n_Escribí \"volver\" para cambiar los servicios o \"cancelar\" para salir_"
}

// TimeSelection lists the free slots of a day, four per row.
func TimeSelection(dateName string, slots []string) string {
	if len(slots) == 0 {
		return render("no_slots", dateName)
	}
	var rows []string
	for i := 0; i < len(slots); i += slotsPerRow {
		end := min(i+slotsPerRow, len(slots))
		cells := make([]string, 0, end-i)
		for j, s := range slots[i:end] {
			cells = append(cells, fmt.Sprintf("%d. %s", i+j+1, s))
		}
		rows = append(rows, strings.Join(cells, "  |  "))
	}
	return render("time_selection", listView{Title: dateName, Lines: rows})
}

// TimeNotRecognized re-shows the first slots.
func TimeNotRecognized(slots []string) string {
	n := min(len(slots), maxRetrySlots)
	return render("time_not_recognized", listView{
		Lines: numbered(slots[:n]),
		More:  len(slots) - n,
	})
}

// SlotUnavailable reports a taken slot and suggests the nearest free ones.
func SlotUnavailable(requested string, alternatives []string) string {
	return render("slot_unavailable", listView{
		Title: requested,
		Lines: alternatives[:min(len(alternatives), maxSlotSuggestion)],
	})
}

// ContactPrompt asks for the name the booking goes under.
func ContactPrompt() string {
	return "*Último paso*\n\nDecime tu *nombre completo* para la reserva."
}

// NameTooShort rejects a one-letter name.
func NameTooShort() string {
	return "El nombre es muy corto.\n\n_Por favor escribí tu nombre completo_"
}

func shortDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// ConfirmationSummary shows the full draft and asks for confirmation.
func ConfirmationSummary(draft whatsapp.PendingAppointment) string {
	services := make([]string, 0, len(draft.SelectedServices))
	for _, id := range draft.SelectedServices {
		if s, ok := appointments.CatalogByID(id); ok {
			services = append(services, fmt.Sprintf("• %s - %s", s.Name, appointments.FormatPrice(s.Price)))
		}
	}
	return render("confirmation_summary", struct {
		Branch, Date, Time, Name, Total string
		Services                        []string
	}{
		Branch:   draft.BranchName,
		Date:     shortDate(draft.PreferredDate),
		Time:     draft.PreferredTime,
		Name:     draft.CustomerName,
		Total:    appointments.FormatPrice(appointments.TotalPrice(draft.SelectedServices)),
		Services: services,
	})
}

// AppointmentSuccess confirms a booked appointment.
func AppointmentSuccess(branchName, date, time string) string {
	return render("appointment_success", struct{ Branch, Date, Time string }{branchName, shortDate(date), time})
}

// AppointmentError reports a failed booking. The draft is kept so confirming again retries.
func AppointmentError(reason string) string {
	return render("appointment_error", reason)
}

// BookingCancelled closes an abandoned booking.
func BookingCancelled() string {
	return "Reserva cancelada.\n\n_Escribí \"turno\" si querés empezar de nuevo_"
}

// BookingHelp lists the commands available during booking.
func BookingHelp() string {
	return "*Comandos disponibles:*\n\n• \"volver\" - Ir al paso anterior\n• \"cancelar\" - Cancelar la reserva\n\n_Seguí los pasos para completar tu turno_"
}
