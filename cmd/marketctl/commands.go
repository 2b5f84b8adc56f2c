package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/senyabanana/surplus-market/internal/auth"
	"github.com/senyabanana/surplus-market/internal/dashboard"
	"github.com/senyabanana/surplus-market/internal/flow"
	"github.com/senyabanana/surplus-market/internal/models"
)

func runToken(args []string) int {
	fs := newFlags("token")
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "signing secret (default $JWT_SECRET)")
	userID := fs.String("user", "", "user id (random when empty)")
	companyID := fs.Int64("company", 0, "company id carried by the token")
	admin := fs.Bool("admin", false, "issue an admin token")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *secret == "" {
		return usageError("--secret or JWT_SECRET is required")
	}

	id := models.Identity{UserID: uuid.New(), Role: models.RoleMember}
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			return usageError("--user must be a uuid")
		}
		id.UserID = parsed
	}
	if *companyID > 0 {
		id.CompanyID = companyID
	}
	if *admin {
		id.Role = models.RoleAdmin
	}

	token, err := auth.NewJWTService(*secret, *ttl).SignAccessToken(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

func (c *cli) runLogin(args []string) int {
	fs := newFlags("login")
	token := fs.String("token", "", "access token; read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	value := *token
	if value == "" {
		raw, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		value = string(raw)
	}
	if err := c.session.Login(value); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return c.runWhoami()
}

func (c *cli) runLogout() int {
	if err := c.session.Logout(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "signed out")
	return 0
}

func (c *cli) runWhoami() int {
	id, ok := c.session.Identity()
	if !ok {
		fmt.Fprintln(os.Stderr, "not signed in")
		return 1
	}
	return printJSON(id)
}

func (c *cli) runContact(ctx context.Context, args []string) int {
	fs := newFlags("contact")
	productID := fs.Int64("product", 0, "product id")
	message := fs.String("message", "", "message to the seller")
	phone := fs.String("phone", "", "optional phone number to share")
	acceptNDA := fs.Bool("accept-nda", false, "accept the NDA without prompting")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *productID <= 0 {
		return usageError("--product is required")
	}

	f := flow.New(*productID, c.client, c.session, c.notifier)
	state, err := f.Start()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if state != flow.NDAPresentation {
		return 1
	}

	fmt.Fprintln(os.Stderr, f.NDA())
	if !*acceptNDA && !confirm("Accept these terms? [y/N] ") {
		_ = f.DeclineNDA()
		fmt.Fprintln(os.Stderr, "NDA declined; nothing was sent")
		return 1
	}
	if err := f.AcceptNDA(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	callCtx, cancel := callContext(ctx)
	defer cancel()
	created, err := f.Submit(callCtx, *message, *phone)
	if err != nil {
		return c.fail(err, true)
	}
	return printJSON(created)
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (c *cli) runRequests(ctx context.Context, args []string) int {
	fs := newFlags("requests")
	role := fs.String("role", string(models.RoleReceived), "received or sent")
	id := fs.Int64("id", 0, "show a single request")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	callCtx, cancel := callContext(ctx)
	defer cancel()
	if *id > 0 {
		cr, err := c.client.GetContactRequest(callCtx, *id)
		if err != nil {
			return c.fail(err, false)
		}
		return printJSON(cr)
	}
	if !models.RequestRole(*role).Valid() {
		return usageError("--role must be received or sent")
	}
	items, err := c.client.ListContactRequests(callCtx, models.RequestRole(*role))
	if err != nil {
		return c.fail(err, false)
	}
	return printJSON(items)
}

func (c *cli) runReview(ctx context.Context, args []string) int {
	fs := newFlags("review")
	id := fs.Int64("id", 0, "contact request id")
	approve := fs.Bool("approve", false, "approve and disclose your contact details")
	reject := fs.Bool("reject", false, "reject the request")
	reason := fs.String("reason", "", "optional rejection reason")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id <= 0 || *approve == *reject {
		return usageError("--id and exactly one of --approve or --reject are required")
	}

	board := dashboard.NewRequestBoard(c.client, c.notifier)
	callCtx, cancel := callContext(ctx)
	defer cancel()

	var (
		cr  *models.ContactRequest
		err error
	)
	if *approve {
		cr, err = board.Approve(callCtx, *id)
	} else {
		cr, err = board.Reject(callCtx, *id, *reason)
	}
	if err != nil {
		return c.fail(err, true)
	}
	return printJSON(cr)
}

func (c *cli) runCompany(ctx context.Context, args []string) int {
	if len(args) < 1 {
		return usageError("usage: marketctl company register|show|update [flags]")
	}
	fs := newFlags("company " + args[0])
	id := fs.Int64("id", 0, "company id (defaults to your own)")
	name := fs.String("name", "", "legal company name")
	tax := fs.String("tax-number", "", "tax number")
	mersis := fs.String("mersis-number", "", "MERSIS number")
	address := fs.String("address", "", "address")
	phone := fs.String("phone", "", "contact phone")
	email := fs.String("email", "", "contact email")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	callCtx, cancel := callContext(ctx)
	defer cancel()

	switch args[0] {
	case "register":
		company, err := c.client.RegisterCompany(callCtx, models.CompanyRequest{
			Name: *name, TaxNumber: *tax, MersisNumber: *mersis, Address: *address, Phone: *phone, Email: *email,
		})
		if err != nil {
			return c.fail(err, false)
		}
		fmt.Fprintln(os.Stderr, "registered; sign in again with a token that carries company id", company.ID)
		return printJSON(company)
	case "show", "update":
		target := *id
		if target == 0 {
			identity, _ := c.session.Identity()
			own, ok := identity.Company()
			if !ok {
				return usageError("--id is required when you have no company")
			}
			target = own
		}
		if args[0] == "show" {
			company, err := c.client.GetCompany(callCtx, target)
			if err != nil {
				return c.fail(err, false)
			}
			return printJSON(company)
		}
		upd := models.CompanyUpdate{}
		setIf := func(dst **string, v string) {
			if v != "" {
				*dst = &v
			}
		}
		setIf(&upd.Address, *address)
		setIf(&upd.Phone, *phone)
		setIf(&upd.Email, *email)
		if *name != "" || *tax != "" || *mersis != "" {
			return usageError("name, tax number and MERSIS number cannot be changed")
		}
		company, err := c.client.UpdateCompany(callCtx, target, upd)
		if err != nil {
			return c.fail(err, false)
		}
		return printJSON(company)
	default:
		return usageError("usage: marketctl company register|show|update [flags]")
	}
}

func (c *cli) runVerify(ctx context.Context, args []string) int {
	fs := newFlags("verify")
	id := fs.Int64("id", 0, "company id; lists the queue when empty")
	approve := fs.Bool("approve", false, "approve the company")
	reject := fs.Bool("reject", false, "reject the company")
	reason := fs.String("reason", "", "rejection reason (required with --reject)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	queue := dashboard.NewVerificationQueue(c.client, c.notifier)
	callCtx, cancel := callContext(ctx)
	defer cancel()

	if *id <= 0 {
		if err := queue.Refresh(callCtx); err != nil {
			return c.fail(err, true)
		}
		return printJSON(queue.Items())
	}
	if *approve == *reject {
		return usageError("exactly one of --approve or --reject is required")
	}

	var (
		company *models.Company
		err     error
	)
	if *approve {
		company, err = queue.Approve(callCtx, *id)
	} else {
		company, err = queue.Reject(callCtx, *id, *reason)
	}
	if err != nil {
		return c.fail(err, true)
	}
	return printJSON(company)
}

func (c *cli) runProducts(ctx context.Context, args []string) int {
	if len(args) < 1 {
		return usageError("usage: marketctl products list|mine|show|create|publish|unpublish|sold|delete [flags]")
	}
	fs := newFlags("products " + args[0])
	id := fs.Int64("id", 0, "product id")
	var categories, currencies repeatStringFlag
	fs.Var(&categories, "category", "category filter or new product category (repeatable for list)")
	fs.Var(&currencies, "currency", "currency filter or new product currency (repeatable for list)")
	title := fs.String("title", "", "product title")
	quantity := fs.Int("quantity", 0, "available quantity")
	price := fs.Float64("price", 0, "unit price")
	publish := fs.Bool("publish", false, "publish on creation")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	callCtx, cancel := callContext(ctx)
	defer cancel()
	listings := dashboard.NewListings(c.client, c.notifier)

	switch args[0] {
	case "list":
		products, err := c.client.ListProducts(callCtx, models.ProductFilter{Categories: categories, Currencies: currencies})
		if err != nil {
			return c.fail(err, false)
		}
		return printJSON(products)
	case "mine":
		if err := listings.Refresh(callCtx); err != nil {
			return c.fail(err, true)
		}
		return printJSON(listings.Items())
	case "create":
		req := models.ProductRequest{Title: *title, Quantity: *quantity, UnitPrice: *price, Publish: *publish}
		if len(categories) > 0 {
			req.Category = categories[0]
		}
		if len(currencies) > 0 {
			req.Currency = currencies[0]
		}
		product, err := c.client.CreateProduct(callCtx, req)
		if err != nil {
			return c.fail(err, false)
		}
		return printJSON(product)
	}

	if *id <= 0 {
		return usageError("--id is required")
	}

	var (
		product *models.Product
		err     error
	)
	switch args[0] {
	case "show":
		product, err = c.client.GetProduct(callCtx, *id)
		if err != nil {
			return c.fail(err, false)
		}
	case "publish":
		product, err = listings.Publish(callCtx, *id)
	case "unpublish":
		product, err = listings.Unpublish(callCtx, *id)
	case "sold":
		product, err = listings.MarkSold(callCtx, *id)
	case "delete":
		if err = listings.Delete(callCtx, *id); err == nil {
			return 0
		}
	default:
		return usageError("unknown products command " + strconv.Quote(args[0]))
	}
	if err != nil {
		return c.fail(err, true)
	}
	return printJSON(product)
}
