// cartclient is a CLI tool for exercising the cart proxy.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	cartclient get -proxy URL [-session ID]
//	cartclient summary -proxy URL [-session ID]
//	cartclient add -proxy URL -variant CODE [-qty N] [-session ID]
//	cartclient delete -proxy URL -variant CODE -session ID
//	cartclient clear -proxy URL -session ID
//	cartclient transfer -proxy URL -session ID -token JWT
//
// Examples:
//
//	SID=$(cartclient add -proxy http://localhost:8080 -variant MUG_BLUE -qty 2 -q)
//	cartclient add -proxy http://localhost:8080 -session $SID -variant CAP_RED
//	cartclient summary -proxy http://localhost:8080 -session $SID
//	cartclient transfer -proxy http://localhost:8080 -session $SID -token $JWT
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"
)

// clientVersion is the cart API version this tool was written against.
const clientVersion = "1.3.0"

// sessionHeader mirrors the proxy's session header.
const sessionHeader = "X-Cart-Session"

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	proxyURL  string
	sessionID string
	userToken string
	quiet     bool
	noColor   bool
	verbose   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "get":
		runGet(args)
	case "summary":
		runSummary(args)
	case "add":
		runAdd(args)
	case "delete":
		runDelete(args)
	case "clear":
		runClear(args)
	case "transfer":
		runTransfer(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cartclient - storefront cart test tool

Usage:
  cartclient <command> [options]

Commands:
  get       Get the cart (creates one if the session has none)
  summary   Item count and total without creating a cart
  add       Add a product variant to the cart
  delete    Remove a product variant's line
  clear     Delete the whole cart
  transfer  Move the anonymous cart to the logged-in user

Examples:
  # Start a session by adding an item and capture the session id
  SID=$(cartclient add -proxy http://localhost:8080 -variant MUG_BLUE -qty 2 -q)

  # Keep working on the same cart
  cartclient get -proxy http://localhost:8080 -session "$SID"

  # Log in and merge the cart into the user's cart
  cartclient transfer -proxy http://localhost:8080 -session "$SID" -token "$JWT"

Run 'cartclient <command> -h' for command-specific options.
`)
}

// newFlagSet registers the flags every command shares.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&proxyURL, "proxy", "http://localhost:8080", "Cart proxy base URL")
	fs.StringVar(&sessionID, "session", "", "Cart session id from a previous command")
	fs.StringVar(&userToken, "token", "", "Storefront identity token (JWT)")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the session id or result")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartclient %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
	proxyURL = strings.TrimSuffix(proxyURL, "/")
}

// =============================================================================
// COMMANDS
// =============================================================================

func runGet(args []string) {
	fs := newFlagSet("get", "get [-session ID] [options]")
	parseFlags(fs, args)

	resp, sid, err := doRequest("GET", "/cart", nil)
	if err != nil {
		fatal("Failed to get cart: %v", err)
	}

	if quiet {
		fmt.Println(sid)
		return
	}
	printSuccess("Cart retrieved")
	printCart(resp)
	printSession(sid)
}

func runSummary(args []string) {
	fs := newFlagSet("summary", "summary [-session ID] [options]")
	parseFlags(fs, args)

	resp, sid, err := doRequest("GET", "/cart/summary", nil)
	if err != nil {
		fatal("Failed to get summary: %v", err)
	}

	hasCart, _ := resp["has_cart"].(bool)
	count, _ := resp["item_count"].(float64)
	if quiet {
		fmt.Printf("%d\n", int(count))
		return
	}
	if !hasCart {
		printInfo("No cart in this session")
	}
	fmt.Printf("  Items: %s%d%s\n", colorCyan, int(count), colorReset)
	fmt.Printf("  Total: %s%s%s\n", colorGreen, formatPrice(resp["total_price"]), colorReset)
	printSession(sid)
}

func runAdd(args []string) {
	fs := newFlagSet("add", "add -variant CODE [-qty N] [options]")
	var (
		variant string
		qty     int
	)
	fs.StringVar(&variant, "variant", "", "Product variant code (required)")
	fs.IntVar(&qty, "qty", 1, "Quantity to add")
	parseFlags(fs, args)

	if variant == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, sid, err := doRequest("POST", "/cart/items", map[string]interface{}{
		"variant":  variant,
		"quantity": qty,
	})
	if err != nil {
		fatal("Failed to add item: %v", err)
	}

	if quiet {
		fmt.Println(sid)
		return
	}
	if item, ok := resp["item"].(map[string]interface{}); ok {
		q, _ := item["quantity"].(float64)
		printSuccess("%s now at quantity %d", variant, int(q))
	}
	if cart, ok := resp["cart"].(map[string]interface{}); ok {
		printCart(cart)
	}
	printSession(sid)
}

func runDelete(args []string) {
	fs := newFlagSet("delete", "delete -variant CODE -session ID [options]")
	var variant string
	fs.StringVar(&variant, "variant", "", "Product variant code (required)")
	parseFlags(fs, args)

	if variant == "" || sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, _, err := doRequest("DELETE", "/cart/items/"+url.PathEscape(variant), nil)
	if err != nil {
		fatal("Failed to delete item: %v", err)
	}

	if quiet {
		fmt.Println("deleted")
		return
	}
	printSuccess("Removed %s", variant)
	printCart(resp)
}

func runClear(args []string) {
	fs := newFlagSet("clear", "clear -session ID [options]")
	parseFlags(fs, args)

	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	if _, _, err := doRequest("DELETE", "/cart", nil); err != nil {
		fatal("Failed to delete cart: %v", err)
	}
	if quiet {
		fmt.Println("deleted")
		return
	}
	printSuccess("Cart deleted")
}

func runTransfer(args []string) {
	fs := newFlagSet("transfer", "transfer -session ID -token JWT [options]")
	parseFlags(fs, args)

	if sessionID == "" || userToken == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, sid, err := doRequest("POST", "/cart/transfer", nil)
	if err != nil {
		fatal("Failed to transfer cart: %v", err)
	}

	if quiet {
		fmt.Println(sid)
		return
	}
	owner, _ := resp["customer_email"].(string)
	printSuccess("Cart transferred to %s", owner)
	printCart(resp)
	printSession(sid)
}

// =============================================================================
// HTTP
// =============================================================================

// doRequest sends one request and returns the decoded body and the session
// id the proxy answered with.
func doRequest(method, path string, body interface{}) (map[string]interface{}, string, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, proxyURL+path, reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	if userToken != "" {
		req.Header.Set("Authorization", "Bearer "+userToken)
	}
	clientHeader, err := storefrontClientHeader()
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Storefront-Client", clientHeader)

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading response: %w", err)
	}

	if !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	sid := resp.Header.Get(sessionHeader)
	if resp.StatusCode >= 400 {
		return nil, sid, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorMessage(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, sid, fmt.Errorf("parsing response: %w", err)
	}

	return result, sid, nil
}

// storefrontClientHeader encodes the client version as a structured field
// dictionary.
func storefrontClientHeader() (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("version", httpsfv.NewItem(clientVersion))
	dict.Add("name", httpsfv.NewItem("cartclient"))
	return httpsfv.Marshal(dict)
}

// errorMessage pulls code and message out of the proxy's error envelope.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return string(body)
	}
	return envelope.Error.Code + ": " + envelope.Error.Message
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

// printCart lists the lines of a cart view.
func printCart(cart map[string]interface{}) {
	id, _ := cart["id"].(float64)
	fmt.Printf("  Cart: %s%d%s\n", colorCyan, int(id), colorReset)
	if items, ok := cart["items"].([]interface{}); ok {
		for _, it := range items {
			item, ok := it.(map[string]interface{})
			if !ok {
				continue
			}
			q, _ := item["quantity"].(float64)
			fmt.Printf("    - %s x%d (%s)\n", item["variant"], int(q), formatPrice(item["total"]))
		}
	}
	fmt.Printf("  Total: %s%s%s\n", colorGreen, formatPrice(cart["total_price"]), colorReset)
}

func printSession(sid string) {
	if sid != "" {
		printInfo("session %s", sid)
	}
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

// formatPrice renders a major-unit amount from the proxy.
func formatPrice(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
