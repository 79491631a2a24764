package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultServer = "http://127.0.0.1:3536"

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

type deviceRow struct {
	DeviceID    string
	Name        string
	Location    string
	IsActive    bool
	LastSeen    time.Time
	Temperature *float64
	Humidity    *float64
}

type dashboardMsg struct {
	rows           []deviceRow
	timeoutMinutes int
}

type tickMsg struct{}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type model struct {
	server      string
	rows        []deviceRow
	timeout     int
	lastRefresh time.Time
	message     string
	quitting    bool
}

func initialModel(server string) model {
	return model{server: server}
}

func (m model) Init() tea.Cmd {
	return fetchDashboard(m.server)
}

func tick() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

func fetchDashboard(server string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(server + "/api/v1/dashboard")
		if err != nil {
			return errMsg{fmt.Errorf("cannot reach server: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errMsg{fmt.Errorf("server returned %s", resp.Status)}
		}

		var payload struct {
			Devices []struct {
				Device struct {
					DeviceID string    `json:"device_id"`
					Name     string    `json:"name"`
					Location string    `json:"location"`
					IsActive bool      `json:"is_active"`
					LastSeen time.Time `json:"last_seen"`
				} `json:"device"`
				Latest *struct {
					Temperature *float64 `json:"temperature_celsius"`
					Humidity    *float64 `json:"humidity_percent"`
				} `json:"latest_telemetry"`
			} `json:"devices"`
			TimeoutMinutes int `json:"timeout_minutes"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return errMsg{fmt.Errorf("invalid dashboard response: %w", err)}
		}

		rows := make([]deviceRow, 0, len(payload.Devices))
		for _, entry := range payload.Devices {
			row := deviceRow{
				DeviceID: entry.Device.DeviceID,
				Name:     entry.Device.Name,
				Location: entry.Device.Location,
				IsActive: entry.Device.IsActive,
				LastSeen: entry.Device.LastSeen,
			}
			if entry.Latest != nil {
				row.Temperature = entry.Latest.Temperature
				row.Humidity = entry.Latest.Humidity
			}
			rows = append(rows, row)
		}
		return dashboardMsg{rows: rows, timeoutMinutes: payload.TimeoutMinutes}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchDashboard(m.server)
		}

	case dashboardMsg:
		m.rows = msg.rows
		m.timeout = msg.timeoutMinutes
		m.lastRefresh = time.Now()
		m.message = ""
		return m, tick()

	case errMsg:
		m.message = msg.Error()
		return m, tick()

	case tickMsg:
		return m, fetchDashboard(m.server)
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	s := titleStyle.Render("Fleet Monitor — "+m.server) + "\n"

	if m.message != "" {
		s += errorStyle.Render("✗ "+m.message) + "\n\n"
	}

	if len(m.rows) == 0 {
		s += dimStyle.Render("no devices registered") + "\n"
	} else {
		s += headerStyle.Render(fmt.Sprintf("%-10s %-20s %-15s %-8s %-10s %-8s %s",
			"ID", "NAME", "LOCATION", "STATUS", "TEMP", "HUMID", "LAST SEEN")) + "\n"
		for _, row := range m.rows {
			status := offlineStyle.Render("offline")
			if row.IsActive {
				status = onlineStyle.Render("online ")
			}
			s += fmt.Sprintf("%-10s %-20s %-15s %s %-10s %-8s %s\n",
				truncate(row.DeviceID, 10),
				truncate(row.Name, 20),
				truncate(row.Location, 15),
				status,
				formatReading(row.Temperature, "°C"),
				formatReading(row.Humidity, "%"),
				dimStyle.Render(row.LastSeen.Local().Format("15:04:05")),
			)
		}
	}

	s += "\n" + dimStyle.Render(fmt.Sprintf("timeout %dm · refreshed %s · r: refresh · q: quit",
		m.timeout, m.lastRefresh.Format("15:04:05")))
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func formatReading(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%s", *v, unit)
}

func main() {
	server := os.Getenv("FLEET_SERVER")
	if server == "" {
		server = defaultServer
	}

	if _, err := tea.NewProgram(initialModel(server)).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fleet-monitor: %v\n", err)
		os.Exit(1)
	}
}
