package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func run(command string, args []string, out io.Writer) error {
	client := newAPIClient(getAPIURL(), loadToken())

	switch command {
	case "setup":
		return setupOrganization(client, args, out)
	case "login":
		return login(client, args, out)
	case "logout":
		os.Remove(tokenFile())
		fmt.Fprintln(out, "✓ Logged out")
		return nil
	case "whoami":
		return whoAmI(client, out)
	case "invite":
		return inviteEmployee(client, args, out)
	case "resend":
		return idCommand(client, args, out, "resend", http.MethodPost, "/employees/admin/%s/resend-invitation", nil)
	case "list":
		return listEmployees(client, args, out)
	case "get":
		return idCommand(client, args, out, "get", http.MethodGet, "/employees/admin/%s", nil)
	case "status":
		return changeStatus(client, args, out)
	case "archive":
		return archiveEmployee(client, args, out)
	case "unarchive":
		return idCommand(client, args, out, "unarchive", http.MethodPut, "/employees/admin/%s/unarchive", map[string]string{})
	case "delete":
		return idCommand(client, args, out, "delete", http.MethodDelete, "/employees/admin/%s", nil)
	case "restore":
		return idCommand(client, args, out, "restore", http.MethodPut, "/employees/admin/%s/restore", nil)
	case "help":
		printUsage(out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func setupOrganization(c *apiClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	orgName := fs.String("org", "", "organization name")
	orgEmail := fs.String("org-email", "", "organization contact email")
	username := fs.String("username", "", "super-admin username")
	email := fs.String("email", "", "super-admin email")
	password := fs.String("password", "", "super-admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orgName == "" || *orgEmail == "" || *username == "" || *email == "" || *password == "" {
		fs.PrintDefaults()
		return errUsage
	}

	env, err := c.do(http.MethodPost, "/setup/initialize", nil, map[string]any{
		"organization": map[string]string{"name": *orgName, "email": *orgEmail},
		"superAdmin":   map[string]string{"username": *username, "email": *email, "password": *password},
	})
	if err != nil {
		return err
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return err
	}
	if err := saveToken(session.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Fprintf(out, "✓ Organization %s created, logged in as %s\n", *orgName, *email)
	return nil
}

func login(c *apiClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		fs.PrintDefaults()
		return errUsage
	}

	env, err := c.do(http.MethodPost, "/auth/login", nil, map[string]string{"email": *email, "password": *password})
	if err != nil {
		return err
	}
	var session struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return err
	}
	if err := saveToken(session.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Fprintf(out, "✓ Logged in as %s (%s)\n", *email, session.Role)
	return nil
}

func whoAmI(c *apiClient, out io.Writer) error {
	if c.token == "" {
		fmt.Fprintln(out, "Not logged in")
		return nil
	}
	env, err := c.do(http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return err
	}
	var me struct {
		Role string `json:"role"`
		User struct {
			ID             string `json:"id"`
			Email          string `json:"email"`
			OrganizationID string `json:"organizationId"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s (organization %s)\n", me.Role, me.User.Email, me.User.OrganizationID)
	return nil
}

func inviteEmployee(c *apiClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("invite", flag.ContinueOnError)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	email := fs.String("email", "", "employee email")
	salary := fs.String("salary", "", "salary (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *first == "" || *last == "" || *email == "" {
		fs.PrintDefaults()
		return errUsage
	}

	body := map[string]string{"firstName": *first, "lastName": *last, "email": *email}
	if *salary != "" {
		body["salary"] = *salary
	}
	env, err := c.do(http.MethodPost, "/employees/invite", nil, body)
	if err != nil {
		return err
	}
	var result struct {
		Employee       employeeRow `json:"employee"`
		InvitationLink string      `json:"invitationLink"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Invited %s (%s)\n  %s\n", result.Employee.Email, result.Employee.ID, result.InvitationLink)
	return nil
}

type employeeRow struct {
	ID               string  `json:"id"`
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	Salary           float64 `json:"salary"`
	InvitationStatus string  `json:"invitationStatus"`
	Status           string  `json:"status"`
	EmploymentStatus string  `json:"employmentStatus"`
	IsDeleted        bool    `json:"isDeleted"`
}

func listEmployees(c *apiClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 10, "page size (max 100)")
	sortBy := fs.String("sort", "createdAt", "sort field")
	order := fs.String("order", "desc", "asc or desc")
	status := fs.String("status", "", "filter by status")
	search := fs.String("search", "", "search name or email")
	deleted := fs.Bool("deleted", false, "include deleted employees")
	archived := fs.Bool("archived", false, "include archived employees")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(*page))
	q.Set("limit", strconv.Itoa(*limit))
	q.Set("sortBy", *sortBy)
	q.Set("sortOrder", *order)
	if *status != "" {
		q.Set("status", *status)
	}
	if *search != "" {
		q.Set("search", *search)
	}
	if *deleted {
		q.Set("includeDeleted", "true")
	}
	if *archived {
		q.Set("includeArchived", "true")
	}

	env, err := c.do(http.MethodGet, "/employees/admin/all", q, nil)
	if err != nil {
		return err
	}
	var rows []employeeRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tINVITATION\tSTATUS\tEMPLOYMENT\tDELETED")
	for _, e := range rows {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\t%t\n",
			e.ID, e.FirstName, e.LastName, e.Email, e.InvitationStatus, e.Status, e.EmploymentStatus, e.IsDeleted)
	}
	w.Flush()
	fmt.Fprintf(out, "page %d of %d (%d total)\n", env.Page, env.TotalPages, env.TotalCount)
	return nil
}

func changeStatus(c *apiClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	to := fs.String("to", "", "pending, active, inactive or terminated")
	reason := fs.String("reason", "", "reason (optional)")
	notes := fs.String("notes", "", "notes (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *to == "" {
		fmt.Fprintln(out, "Usage: onboardctl status -to <status> [-reason r] [-notes n] <employee-id>")
		return errUsage
	}
	body := map[string]string{"status": *to, "reason": *reason, "notes": *notes}
	return printEmployee(c, out, "status", http.MethodPost, "/employees/"+url.PathEscape(fs.Arg(0))+"/status", body)
}

func archiveEmployee(c *apiClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	reason := fs.String("reason", "", "archive reason (optional)")
	notes := fs.String("notes", "", "notes (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(out, "Usage: onboardctl archive [-reason r] [-notes n] <employee-id>")
		return errUsage
	}
	body := map[string]string{"reason": *reason, "notes": *notes}
	return printEmployee(c, out, "archive", http.MethodPost, "/employees/admin/"+url.PathEscape(fs.Arg(0))+"/archive", body)
}

// idCommand runs a request whose only argument is the employee id
func idCommand(c *apiClient, args []string, out io.Writer, name, method, pathFormat string, body any) error {
	if len(args) != 1 {
		fmt.Fprintf(out, "Usage: onboardctl %s <employee-id>\n", name)
		return errUsage
	}
	return printEmployee(c, out, name, method, fmt.Sprintf(pathFormat, url.PathEscape(args[0])), body)
}

func printEmployee(c *apiClient, out io.Writer, name, method, path string, body any) error {
	env, err := c.do(method, path, nil, body)
	if err != nil {
		return err
	}
	var wrapped struct {
		Employee *employeeRow `json:"employee"`
	}
	var e employeeRow
	if err := json.Unmarshal(env.Data, &wrapped); err == nil && wrapped.Employee != nil {
		e = *wrapped.Employee
	} else if err := json.Unmarshal(env.Data, &e); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %s %s: invitation=%s status=%s employment=%s deleted=%t\n",
		name, e.ID, e.InvitationStatus, e.Status, e.EmploymentStatus, e.IsDeleted)
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `onboardctl - OnboardHR command line client

Usage:
  onboardctl <command> [options]

Commands:
  setup      Create an organization and its super-admin
  login      Sign in as an admin or employee
  logout     Forget the stored session token
  whoami     Show the signed-in principal
  invite     Invite an employee by email
  resend     Re-send an expired invitation
  list       List employees of the organization
  get        Show one employee
  status     Change an employee's status
  archive    Mark an employee as a former employee
  unarchive  Return an archived employee to review
  delete     Soft-delete an employee
  restore    Undo a soft delete
  help       Show this help message

Environment Variables:
  ONBOARDHR_API           API endpoint (default: http://localhost:8080/api)
  ONBOARDCTL_TOKEN_FILE   Session token location (default: ~/.onboardctl/token)

Examples:
  onboardctl setup -org acme -org-email hr@acme.test -username root -email admin@acme.test -password s3cret-pass
  onboardctl invite -first Jane -last Doe -email jane@acme.test -salary 4200
  onboardctl list -status pending -sort email -order asc
  onboardctl status -to active -reason "documents verified" <employee-id>
`)
}
