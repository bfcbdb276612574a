package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "product":
		handleProduct(args)
	case "sell":
		handleSell(args)
	case "report":
		handleReport(args)
	case "staff":
		handleStaff(args)
	case "export":
		exportLedgers(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tillpoint auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginStaff(args[1:])
	case "logout":
		logoutStaff()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tillpoint product <list|add|delete|low-stock>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listProducts(args[1:])
	case "add":
		addProduct(args[1:])
	case "delete":
		deleteProduct(args[1:])
	case "low-stock":
		lowStock(args[1:])
	default:
		fmt.Printf("unknown product command: %s\n", subCmd)
	}
}

func handleReport(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tillpoint report <dashboard|best-sellers|daily>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "dashboard":
		showDashboard()
	case "best-sellers":
		showBestSellers(args[1:])
	case "daily":
		showDailyReport(args[1:])
	default:
		fmt.Printf("unknown report command: %s\n", subCmd)
	}
}

func handleStaff(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tillpoint staff <list|add>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listStaff()
	case "add":
		addStaff(args[1:])
	default:
		fmt.Printf("unknown staff command: %s\n", subCmd)
	}
}

// Auth commands
func loginStaff(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "staff username")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"username": *username, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s (%v)\n", *username, result["role"])
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutStaff() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Product commands
func listProducts(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	category := fs.String("category", "", "filter by category")

	fs.Parse(args)

	url := getAPIURL() + "/products"
	params := []string{}
	if *query != "" {
		params = append(params, "q="+*query)
	}
	if *category != "" {
		params = append(params, "category="+*category)
	}
	if len(params) > 0 {
		url += "?" + strings.Join(params, "&")
	}

	var products []map[string]interface{}
	if !getJSON(url, &products) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", p["id"], p["name"], p["category"], p["price"], p["stock"])
	}
	w.Flush()
}

func addProduct(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "product name")
	brand := fs.String("brand", "", "brand")
	category := fs.String("category", "", "category")
	size := fs.String("size", "", "pack size, e.g. 750ml")
	price := fs.String("price", "", "unit price")
	stock := fs.Int("stock", 0, "opening stock")
	minStock := fs.Int("min-stock", 0, "low stock threshold")

	fs.Parse(args)

	if *name == "" || *category == "" || *price == "" {
		fmt.Println("Error: name, category, and price are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"name":     *name,
		"brand":    *brand,
		"category": *category,
		"size":     *size,
		"price":    *price,
		"stock":    *stock,
		"minStock": *minStock,
	}

	var product map[string]interface{}
	if !postJSON(getAPIURL()+"/products", payload, &product, 201) {
		return
	}
	fmt.Printf("✓ Product added: %v (%v)\n", product["name"], product["id"])
}

func deleteProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tillpoint product delete <product-id>")
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/products/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 204 {
		fmt.Println("✓ Product deleted")
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Delete failed: %v\n", result)
	}
}

func lowStock(args []string) {
	_ = args
	var products []map[string]interface{}
	if !getJSON(getAPIURL()+"/products/low-stock", &products) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTOCK\tMIN STOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%v\t%v\t%v\n", p["name"], p["stock"], p["minStock"])
	}
	w.Flush()
}

// Sell rings up a one-line cash sale from the terminal
func handleSell(args []string) {
	fs := flag.NewFlagSet("sell", flag.ExitOnError)
	productID := fs.String("product", "", "product id")
	quantity := fs.Int("quantity", 1, "quantity")
	method := fs.String("method", "cash", "payment method (cash, card)")

	fs.Parse(args)

	if *productID == "" {
		fmt.Println("Error: product is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": *productID, "quantity": *quantity},
		},
		"paymentMethod": *method,
	}

	var sale map[string]interface{}
	if !postJSON(getAPIURL()+"/checkouts", payload, &sale, 201) {
		return
	}
	fmt.Printf("✓ Sale recorded: %v (total %v)\n", sale["id"], sale["totalAmount"])
}

// Report commands
func showDashboard() {
	var stats map[string]interface{}
	if !getJSON(getAPIURL()+"/reports/dashboard", &stats) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total revenue\t%v\n", stats["totalRevenue"])
	fmt.Fprintf(w, "Today's revenue\t%v\n", stats["todaysRevenue"])
	fmt.Fprintf(w, "Sales\t%v\n", stats["saleCount"])
	fmt.Fprintf(w, "Today's sales\t%v\n", stats["todaysSales"])
	fmt.Fprintf(w, "Low stock items\t%v\n", stats["lowStockItems"])
	fmt.Fprintf(w, "Staff\t%v\n", stats["staffCount"])
	w.Flush()
}

func showBestSellers(args []string) {
	fs := flag.NewFlagSet("best-sellers", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of rows")

	fs.Parse(args)

	var rows []map[string]interface{}
	if !getJSON(fmt.Sprintf("%s/reports/best-sellers?limit=%d", getAPIURL(), *limit), &rows) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tSOLD\tREVENUE")
	for _, r := range rows {
		fmt.Fprintf(w, "%v\t%v\t%v\n", r["productName"], r["quantitySold"], r["revenue"])
	}
	w.Flush()
}

func showDailyReport(args []string) {
	fs := flag.NewFlagSet("daily", flag.ExitOnError)
	from := fs.String("from", "", "start date (YYYY-MM-DD)")
	to := fs.String("to", "", "end date (YYYY-MM-DD)")

	fs.Parse(args)

	url := getAPIURL() + "/reports/daily"
	if *from != "" && *to != "" {
		url += fmt.Sprintf("?from=%s&to=%s", *from, *to)
	}

	var rows []map[string]interface{}
	if !getJSON(url, &rows) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSALES\tREVENUE")
	for _, r := range rows {
		fmt.Fprintf(w, "%v\t%v\t%v\n", r["date"], r["sales"], r["revenue"])
	}
	w.Flush()
}

// Staff commands
func listStaff() {
	var members []map[string]interface{}
	if !getJSON(getAPIURL()+"/staff", &members) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tACTIVE")
	for _, m := range members {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", m["id"], m["username"], m["role"], m["isActive"])
	}
	w.Flush()
}

func addStaff(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password (min 8 chars)")
	role := fs.String("role", "cashier", "role (admin, cashier)")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"username": *username,
		"password": *password,
		"role":     *role,
	}

	var member map[string]interface{}
	if !postJSON(getAPIURL()+"/staff", payload, &member, 201) {
		return
	}
	fmt.Printf("✓ Staff member added: %v (%v)\n", member["username"], member["role"])
}

// Export
func exportLedgers(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "output file (default stdout)")

	fs.Parse(args)

	req, _ := http.NewRequest("GET", getAPIURL()+"/export", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Export failed: %v\n", result)
		return
	}

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if *out == "" {
		fmt.Println(buf.String())
		return
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0644); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("✓ Ledgers exported to %s\n", *out)
}

// Helper functions
func getJSON(url string, out interface{}) bool {
	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Request failed: %v\n", result)
		return false
	}
	json.NewDecoder(resp.Body).Decode(out)
	return true
}

func postJSON(url string, payload interface{}, out interface{}, wantStatus int) bool {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Request failed: %v\n", result)
		return false
	}
	json.NewDecoder(resp.Body).Decode(out)
	return true
}

func getAPIURL() string {
	if url := os.Getenv("TILLPOINT_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.tillpoint/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.tillpoint", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`tillpoint CLI

Usage:
  tillpoint <command> [options]

Commands:
  auth     Staff authentication (login, logout, who)
  product  Inventory operations (list, add, delete, low-stock)
  sell     Ring up a one-line cash sale
  report   Reports (dashboard, best-sellers, daily)
  staff    Staff management (list, add) - admin access required
  export   Dump all ledgers as JSON - admin access required
  help     Show this help message

Environment Variables:
  TILLPOINT_API    API endpoint (default: http://localhost:8080/api)

Examples:
  tillpoint auth login -username admin -password secret123
  tillpoint product list -q whisky
  tillpoint sell -product <id> -quantity 2
  tillpoint report best-sellers -limit 5
`)
}
