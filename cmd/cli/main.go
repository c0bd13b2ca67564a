// Command ds is a CLI client for the digistore REST API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/digistore/internal/convert"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "digistore")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "digistore")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

func clearToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `ds CLI
Usage:
  ds [-addr URL] [-timeout D] <cmd> [args]

Commands:
  version
  register   -email <email> -p <password> [-name <display name>]   (saves token)
  login      -email <email> -p <password>                          (saves token)
  logout
  me
  checkout   -product <uuid> [-qty N]
  cart       <product-uuid>[:qty] ...
  service    -service <uuid> -package <uuid> [-notes text]
  orders     [-all [-limit N] [-offset N]]                         (-all: admin)
  order      -id <uuid>
  access     -id <order-uuid> [-product <uuid>]
  redeem     -token <token>                                        (prints redirect target)
  confirm    -id <payment-uuid>                                    (admin)
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Checkout works for guests, so a missing token is not an error here.
	tok, _ := loadToken()
	cli := newClient(*addr, tok, *timeout)

	requireLogin := func() {
		if tok == "" {
			fail(errors.New("no valid token (login required)"))
		}
	}

	switch cmd {

	case "version":
		fmt.Printf("ds %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		email := fs.String("email", "", "email")
		p := fs.String("p", "", "password")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(args)
		if *email == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -email and -p")
			os.Exit(1)
		}
		resp, err := cli.register(ctx, convert.RegisterRequest{Email: *email, Password: *p, DisplayName: *name})
		if err != nil {
			fail(err)
		}
		if err := saveToken(resp.Token, resp.ExpiresAt); err != nil {
			fail(err)
		}
		printJSON(resp.User)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -email and -p")
			os.Exit(1)
		}
		resp, err := cli.login(ctx, convert.LoginRequest{Email: *email, Password: *p})
		if err != nil {
			fail(err)
		}
		if err := saveToken(resp.Token, resp.ExpiresAt); err != nil {
			fail(err)
		}
		fmt.Printf("logged in as %s (%s), token expires %s\n",
			resp.User.Email, resp.User.Role, resp.ExpiresAt.UTC().Format(time.RFC3339))

	case "logout":
		if err := clearToken(); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "me":
		requireLogin()
		u, err := cli.me(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(u)

	case "checkout":
		fs := flag.NewFlagSet("checkout", flag.ExitOnError)
		pid := fs.String("product", "", "product uuid")
		qty := fs.Int("qty", 1, "quantity")
		_ = fs.Parse(args)
		if *pid == "" {
			fmt.Fprintln(os.Stderr, "need -product")
			os.Exit(1)
		}
		o, err := cli.checkout(ctx, convert.CheckoutRequest{ProductID: *pid, Quantity: *qty})
		if err != nil {
			fail(err)
		}
		printJSON(o)

	case "cart":
		req, err := parseCartLines(args)
		if err != nil {
			fail(err)
		}
		o, err := cli.cart(ctx, req)
		if err != nil {
			fail(err)
		}
		printJSON(o)

	case "service":
		fs := flag.NewFlagSet("service", flag.ExitOnError)
		sid := fs.String("service", "", "service uuid")
		pkg := fs.String("package", "", "package uuid")
		notes := fs.String("notes", "", "notes for the provider")
		_ = fs.Parse(args)
		if *sid == "" || *pkg == "" {
			fmt.Fprintln(os.Stderr, "need -service and -package")
			os.Exit(1)
		}
		o, err := cli.service(ctx, convert.ServiceCheckoutRequest{ServiceID: *sid, PackageID: *pkg, Notes: *notes})
		if err != nil {
			fail(err)
		}
		printJSON(o)

	case "orders":
		fs := flag.NewFlagSet("orders", flag.ExitOnError)
		all := fs.Bool("all", false, "list every order (admin)")
		limit := fs.Int("limit", 0, "page size")
		offset := fs.Int("offset", 0, "page offset")
		_ = fs.Parse(args)
		requireLogin()

		var (
			list []convert.Order
			err  error
		)
		if *all {
			list, err = cli.allOrders(ctx, *limit, *offset)
		} else {
			list, err = cli.orders(ctx)
		}
		if err != nil {
			fail(err)
		}
		printJSON(list)

	case "order":
		fs := flag.NewFlagSet("order", flag.ExitOnError)
		id := fs.String("id", "", "order uuid")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		requireLogin()
		o, err := cli.order(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(o)

	case "access":
		fs := flag.NewFlagSet("access", flag.ExitOnError)
		id := fs.String("id", "", "order uuid")
		pid := fs.String("product", "", "product uuid (optional)")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		requireLogin()
		a, err := cli.access(ctx, *id, *pid)
		if err != nil {
			fail(err)
		}
		printJSON(a)

	case "redeem":
		fs := flag.NewFlagSet("redeem", flag.ExitOnError)
		t := fs.String("token", "", "download token")
		_ = fs.Parse(args)
		if *t == "" {
			fmt.Fprintln(os.Stderr, "need -token")
			os.Exit(1)
		}
		requireLogin()
		loc, err := cli.redeem(ctx, *t)
		if err != nil {
			fail(err)
		}
		fmt.Println(loc)

	case "confirm":
		fs := flag.NewFlagSet("confirm", flag.ExitOnError)
		id := fs.String("id", "", "payment uuid")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		requireLogin()
		res, err := cli.confirm(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(res)

	default:
		usage()
	}
}

// ---- helpers ----

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: status=%d msg=%s\n", ae.Status, ae.Message)
		if ae.Detail != "" {
			fmt.Fprintf(os.Stderr, "detail: %s\n", ae.Detail)
		}
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
