package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/models"
	"github.com/ukydev/bike-service/internal/service"
)

// Bikes for realistic bookings
var bikes = []struct {
	Brand  string
	Models []string
}{
	{"Royal Enfield", []string{"Classic 350", "Himalayan", "Meteor 350"}},
	{"Honda", []string{"CB Shine", "Activa 6G", "Hornet 2.0"}},
	{"Bajaj", []string{"Pulsar 150", "Dominar 400", "Platina"}},
	{"TVS", []string{"Apache RTR 160", "Jupiter", "Ntorq 125"}},
	{"Yamaha", []string{"FZ-S", "R15 V4", "MT-15"}},
}

var serviceTypes = []models.ServiceType{
	models.ServiceGeneral,
	models.ServiceOilChange,
	models.ServiceRepair,
	models.ServiceBatteryReplacement,
	models.ServiceTyre,
}

var pickupSlots = []string{"09:00", "10:30", "12:00", "14:30", "16:00"}

var streets = []string{"Lake Road", "Station Street", "Temple Lane", "Market Road", "Hill View"}

// simConfig is read from the environment.
type simConfig struct {
	APIURL        string
	Customers     int
	Bookings      int
	Password      string
	AdminEmail    string
	AdminPassword string
	Seed          int64
}

func loadConfig() simConfig {
	cfg := simConfig{
		APIURL:        os.Getenv("API_BASE_URL"),
		Customers:     5,
		Bookings:      2,
		Password:      os.Getenv("SIM_PASSWORD"),
		AdminEmail:    os.Getenv("SIM_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("SIM_ADMIN_PASSWORD"),
		Seed:          time.Now().UnixNano(),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:8080/api"
	}
	if cfg.Password == "" {
		cfg.Password = "simulated-rider"
	}
	if n, err := strconv.Atoi(os.Getenv("SIM_CUSTOMERS")); err == nil && n > 0 {
		cfg.Customers = n
	}
	if n, err := strconv.Atoi(os.Getenv("SIM_BOOKINGS_PER_CUSTOMER")); err == nil && n > 0 {
		cfg.Bookings = n
	}
	if n, err := strconv.ParseInt(os.Getenv("SIM_SEED"), 10, 64); err == nil {
		cfg.Seed = n
	}
	return cfg
}

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *apiClient) do(method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &apiError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *apiClient) login(email, password string) (string, error) {
	var resp models.LoginResponse
	if err := c.do(http.MethodPost, "/auth/login", "", models.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// signUp registers the customer, or logs in when the email is already taken.
func (c *apiClient) signUp(name, email, password string) (string, error) {
	err := c.do(http.MethodPost, "/auth/register", "", models.RegisterRequest{Name: name, Email: email, Password: password}, nil)
	var apiErr *apiError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Message == "Email already registered") {
		return "", err
	}
	return c.login(email, password)
}

func (c *apiClient) createBooking(token string, req models.BookingRequest) (string, error) {
	var resp struct {
		Booking models.Booking `json:"booking"`
	}
	if err := c.do(http.MethodPost, "/bookings", token, req, &resp); err != nil {
		return "", err
	}
	return resp.Booking.ID.Hex(), nil
}

func (c *apiClient) createMechanic(token string, in service.CreateMechanicInput) (string, error) {
	var resp struct {
		Mechanic models.Mechanic `json:"mechanic"`
	}
	if err := c.do(http.MethodPost, "/admin/mechanics", token, in, &resp); err != nil {
		return "", err
	}
	return resp.Mechanic.ID.Hex(), nil
}

func (c *apiClient) assign(token, bookingID, mechanicID string) error {
	return c.do(http.MethodPost, "/admin/assign-mechanic", token, models.AssignRequest{BookingID: bookingID, MechanicID: mechanicID}, nil)
}

// randomBooking picks a bike and a service for day days from start. Slot
// selects the pickup time so one customer never books the same slot twice.
func randomBooking(rng *rand.Rand, start time.Time, day, slot int) models.BookingRequest {
	bike := bikes[rng.Intn(len(bikes))]

	pickup := start.AddDate(0, 0, day)
	delivery := pickup.AddDate(0, 0, 1+rng.Intn(3))
	return models.BookingRequest{
		BikeModel:          bike.Models[rng.Intn(len(bike.Models))],
		BikeBrand:          bike.Brand,
		RegistrationNumber: fmt.Sprintf("KA%02d%c%c%04d", 1+rng.Intn(50), 'A'+rune(rng.Intn(26)), 'A'+rune(rng.Intn(26)), rng.Intn(10000)),
		ServiceType:        string(serviceTypes[rng.Intn(len(serviceTypes))]),
		PickupAddress:      fmt.Sprintf("%d %s", 1+rng.Intn(200), streets[rng.Intn(len(streets))]),
		PickupDate:         pickup.Format("2006-01-02"),
		PickupTime:         pickupSlots[slot%len(pickupSlots)],
		PreferredDate:      delivery.Format("2006-01-02"),
		PreferredTime:      pickupSlots[rng.Intn(len(pickupSlots))],
	}
}

// summary reports what a simulation run created.
type summary struct {
	Customers int
	Bookings  []string
	Assigned  int
}

func simulate(cfg simConfig, client *apiClient, logger log.FieldLogger) (summary, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	run := uuid.NewString()[:8]

	var out summary
	for i := 0; i < cfg.Customers; i++ {
		email := fmt.Sprintf("rider-%s-%d@sim.test", run, i+1)
		token, err := client.signUp(fmt.Sprintf("Rider %d", i+1), email, cfg.Password)
		if err != nil {
			logger.WithError(err).WithField("email", email).Error("Failed to sign up customer")
			continue
		}
		out.Customers++

		for j := 0; j < cfg.Bookings; j++ {
			req := randomBooking(rng, start, j/len(pickupSlots), j)
			id, err := client.createBooking(token, req)
			if err != nil {
				logger.WithError(err).WithField("email", email).Error("Failed to create booking")
				continue
			}
			out.Bookings = append(out.Bookings, id)
			logger.WithFields(log.Fields{
				"booking_id": id,
				"bike":       req.BikeBrand + " " + req.BikeModel,
				"service":    req.ServiceType,
				"pickup":     req.PickupDate + " " + req.PickupTime,
			}).Info("Created booking")
		}
	}

	if out.Customers == 0 {
		return out, errors.New("no customers could sign up; ensure the API is reachable")
	}
	if cfg.AdminEmail == "" {
		return out, nil
	}

	adminToken, err := client.login(cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return out, fmt.Errorf("admin login: %w", err)
	}
	mechanicID, err := client.createMechanic(adminToken, service.CreateMechanicInput{
		Name:       "Sim Mechanic " + run,
		Email:      fmt.Sprintf("mechanic-%s@sim.test", run),
		Phone:      "555-0100",
		Password:   cfg.Password,
		Experience: 1 + rng.Intn(10),
	})
	if err != nil {
		return out, fmt.Errorf("create mechanic: %w", err)
	}

	for _, id := range out.Bookings {
		// Leave some bookings pending so the admin queue is not empty.
		if rng.Intn(2) == 0 {
			continue
		}
		if err := client.assign(adminToken, id, mechanicID); err != nil {
			logger.WithError(err).WithField("booking_id", id).Error("Failed to assign mechanic")
			continue
		}
		out.Assigned++
	}
	return out, nil
}

func main() {
	cfg := loadConfig()
	logger := log.New()

	logger.WithFields(log.Fields{
		"customers": cfg.Customers,
		"bookings":  cfg.Bookings,
		"api_url":   cfg.APIURL,
		"seed":      cfg.Seed,
	}).Info("Starting booking simulation")

	out, err := simulate(cfg, newAPIClient(cfg.APIURL), logger)
	if err != nil {
		logger.WithError(err).Fatal("Simulation failed")
	}

	logger.WithFields(log.Fields{
		"customers": out.Customers,
		"bookings":  len(out.Bookings),
		"assigned":  out.Assigned,
	}).Info("Simulation completed")
}
