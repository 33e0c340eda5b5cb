package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
)

var (
	serviceTypes = []string{"Kinesiologia", "Rehabilitacion de rodilla", "Kinesiologia respiratoria", "Rehabilitacion de hombro"}
	locations    = []string{"Box 1", "Box 2", "Sala de ejercicios", "Domicilio"}
	sessionTimes = []string{"08:30", "09:15", "10:00", "11:30", "15:00", "16:45", "18:00"}
	allStatuses  = []domain.AppointmentStatus{domain.AppointmentScheduled, domain.AppointmentAttended, domain.AppointmentNoShow}
)

// fixture is one patient and the appointments booked for them.
type fixture struct {
	Patient      domain.Patient
	Appointments []domain.Appointment
}

// buildFixtures generates count patients with sessions within two weeks of
// around. Every fifth patient has no email and appointment statuses rotate
// so every requested status is present.
func buildFixtures(
	faker *gofakeit.Faker,
	count int,
	practitioners []string,
	statuses []domain.AppointmentStatus,
	around time.Time,
	loc *time.Location,
) []fixture {
	if len(statuses) == 0 {
		statuses = allStatuses
	}
	fixtures := make([]fixture, 0, count)
	statusIdx := 0

	for i := 0; i < count; i++ {
		first, last := faker.FirstName(), faker.LastName()
		patient := domain.Patient{
			FullName:   first + " " + last,
			Phone:      "+569" + faker.Numerify("########"),
			NationalID: rut(faker.Number(5_000_000, 25_000_000)),
		}
		if i%5 != 4 {
			email := strings.ToLower(fmt.Sprintf("%s.%s%d@%s", first, last, i, faker.DomainName()))
			patient.Email = &email
		}

		sessions := faker.Number(1, 3)
		appointments := make([]domain.Appointment, 0, sessions)
		for j := 0; j < sessions; j++ {
			day := around.AddDate(0, 0, faker.Number(-14, 14))
			appointments = append(appointments, domain.Appointment{
				SessionDate:  domain.AnchorSessionDate(day, loc),
				SessionTime:  faker.RandomString(sessionTimes),
				Location:     faker.RandomString(locations),
				Practitioner: faker.RandomString(practitioners),
				ServiceType:  faker.RandomString(serviceTypes),
				Status:       statuses[statusIdx%len(statuses)],
			})
			statusIdx++
		}

		fixtures = append(fixtures, fixture{Patient: patient, Appointments: appointments})
	}

	return fixtures
}

// parseStatuses reads a comma separated status list. Empty means every status.
func parseStatuses(value string) ([]domain.AppointmentStatus, error) {
	if strings.TrimSpace(value) == "" {
		return allStatuses, nil
	}

	var statuses []domain.AppointmentStatus
	for _, part := range strings.Split(value, ",") {
		status, err := domain.ParseAppointmentStatusFromString(part)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// parseAround reads the yyyy-mm-dd centre of the generated sessions. Empty
// means today in loc.
func parseAround(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return domain.AnchorSessionDate(now, loc), nil
	}
	return domain.ParseSessionDate(value, loc)
}

// rut formats a Chilean national id with its modulo 11 check digit.
func rut(body int) string {
	sum, factor := 0, 2
	for n := body; n > 0; n /= 10 {
		sum += (n % 10) * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}

	var dv string
	switch check := 11 - sum%11; check {
	case 11:
		dv = "0"
	case 10:
		dv = "K"
	default:
		dv = fmt.Sprint(check)
	}
	return fmt.Sprintf("%d-%s", body, dv)
}
