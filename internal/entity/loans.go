package entity

import "github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/schema"

// Modules maps module keys (as sent by the booking UI) to loan-product and
// lender configs. Two dynamic routers consume this registry instead of one
// static mount per entity: bookings pick the config from a `module` field in
// the request body, the shared list grid picks it from a query parameter.
var Modules = map[string]Config{
	// ---------------- PRODUCTS ----------------
	"product:ev": {
		EntityName:     "product_ev",
		Table:          "loan_product_ev",
		CodeField:      "customer_id",
		CodePrefix:     "PEV",
		JSONColumn:     "custom_data",
		DefaultStatus:  "LOGIN",
		SearchColumns:  []string{
			"customer_id", "customer_name", "mobile_number", "dealer_name",
			"lender_name", "borrower_pan", "borrower_aadhar",
		},
		Perms:          Perms{Read: "PROD_EV_READ", Write: "PROD_EV_WRITE", Review: "PROD_EV_REVIEW"},
		CreateSchema:   evSchema,
		UpdateSchema:   evSchema.Partial(),
		BulkItemSchema: evSchema,
		MapBodyToRow:   passthrough(
			"login_date", "customer_name", "borrower_dob", "father_name",
			"address_line1", "address_line2", "village", "district", "state", "pincode",
			"mobile_number", "loan_amount", "interest_rate", "tenure_months",
			"guarantor_name", "guarantor_dob", "guarantor_aadhar", "guarantor_pan",
			"dealer_name", "name_in_bank", "bank_name", "account_number", "ifsc",
			"borrower_aadhar", "borrower_pan",
			"product_name", "lender_name", "agreement_date",
			"cibil_score", "guarantor_cibil_score", "relationship_with_borrower",
			"coapplicant_name", "coapplicant_dob", "coapplicant_aadhar",
			"coapplicant_pan", "coapplicant_cibil_score",
			"apr", "is_active",
		),
	},

	"product:mobile-loan": {
		EntityName:     "product_mobile",
		Table:          "loan_product_mobile",
		CodeField:      "customer_id",
		CodePrefix:     "PML",
		JSONColumn:     "custom_data",
		DefaultStatus:  "PENDING",
		SearchColumns:  []string{"customer_id", "applicant_name", "phone", "handset_brand", "imei"},
		Perms:          Perms{Read: "PROD_MOBILE_READ", Write: "PROD_MOBILE_WRITE", Review: "PROD_MOBILE_REVIEW"},
		CreateSchema:   mobileSchema,
		UpdateSchema:   mobileSchema.Partial(),
		BulkItemSchema: mobileSchema,
		// the UI field is device_brand; the column is handset_brand
		MapBodyToRow:   mapper(map[string]string{
			"applicant_name": "applicant_name",
			"phone":          "phone",
			"device_brand":   "handset_brand",
			"amount":         "amount",
			"is_active":      "is_active",
		}),
	},

	"product:education-loan": {
		EntityName:     "product_education",
		Table:          "loan_product_education",
		CodeField:      "customer_id",
		CodePrefix:     "PED",
		JSONColumn:     "custom_data",
		DefaultStatus:  "PENDING",
		SearchColumns:  []string{"customer_id", "applicant_name", "phone", "institute_name", "course"},
		Perms:          Perms{Read: "PROD_EDU_READ", Write: "PROD_EDU_WRITE", Review: "PROD_EDU_REVIEW"},
		CreateSchema:   educationSchema,
		UpdateSchema:   educationSchema.Partial(),
		BulkItemSchema: educationSchema,
		MapBodyToRow:   passthrough("applicant_name", "phone", "course", "amount", "is_active"),
	},

	// ---------------- LENDERS ----------------
	"lender:ev": {
		EntityName:     "lender_ev",
		Table:          "loan_lender_ev",
		CodeField:      "customer_id",
		CodePrefix:     "LEV",
		JSONColumn:     "custom_data",
		DefaultStatus:  "PENDING",
		SearchColumns:  []string{"customer_id", "applicant_name", "phone", "dealer_id"},
		Perms:          Perms{Read: "LEND_EV_READ", Write: "LEND_EV_WRITE", Review: "LEND_EV_REVIEW"},
		CreateSchema:   lenderEVSchema,
		UpdateSchema:   lenderEVSchema.Partial(),
		BulkItemSchema: lenderEVSchema,
		MapBodyToRow:   passthrough(
			"applicant_name", "phone", "loan_amount", "rate", "tenure_months",
			"dealer_id", "is_active",
		),
	},

	"lender:adikosh": {
		EntityName:     "lender_adikosh",
		Table:          "loan_lender_adikosh",
		CodeField:      "customer_id",
		CodePrefix:     "LAD",
		JSONColumn:     "custom_data",
		DefaultStatus:  "PENDING",
		SearchColumns:  []string{"customer_id", "applicant_name", "phone"},
		Perms:          Perms{Read: "LEND_ADIKOSH_READ", Write: "LEND_ADIKOSH_WRITE", Review: "LEND_ADIKOSH_REVIEW"},
		CreateSchema:   adikoshSchema,
		UpdateSchema:   adikoshSchema.Partial(),
		BulkItemSchema: adikoshSchema,
		MapBodyToRow:   passthrough(
			"applicant_name", "phone", "amount", "bureau_score", "tenure_months", "is_active",
		),
	},

	"lender:gq-fsf": {
		EntityName:     "lender_gq_fsf",
		Table:          "loan_lender_gq_fsf",
		CodeField:      "customer_id",
		CodePrefix:     "LGQF",
		JSONColumn:     "custom_data",
		DefaultStatus:  "PENDING",
		SearchColumns:  []string{"customer_id", "applicant_name", "phone", "scheme_name"},
		Perms:          Perms{Read: "LEND_GQFSF_READ", Write: "LEND_GQFSF_WRITE", Review: "LEND_GQFSF_REVIEW"},
		CreateSchema:   schemeSchema,
		UpdateSchema:   schemeSchema.Partial(),
		BulkItemSchema: schemeSchema,
		MapBodyToRow:   passthrough("applicant_name", "phone", "amount", "scheme_name", "is_active"),
	},

	"lender:gq-nonfsf": {
		EntityName:     "lender_gq_nonfsf",
		Table:          "loan_lender_gq_nonfsf",
		CodeField:      "customer_id",
		CodePrefix:     "LGQNF",
		JSONColumn:     "custom_data",
		DefaultStatus:  "PENDING",
		SearchColumns:  []string{"customer_id", "applicant_name", "phone", "scheme_name"},
		Perms:          Perms{Read: "LEND_GQNONFSF_READ", Write: "LEND_GQNONFSF_WRITE", Review: "LEND_GQNONFSF_REVIEW"},
		CreateSchema:   schemeSchema,
		UpdateSchema:   schemeSchema.Partial(),
		BulkItemSchema: schemeSchema,
		MapBodyToRow:   passthrough("applicant_name", "phone", "amount", "scheme_name", "is_active"),
	},

	"lender:bl": {
		EntityName:     "lender_bl",
		Table:          "loan_lender_bl",
		CodeField:      "customer_id",
		CodePrefix:     "LBL",
		JSONColumn:     "custom_data",
		DefaultStatus:  "PENDING",
		SearchColumns:  []string{"customer_id", "applicant_name", "phone", "business_name", "gst_no"},
		Perms:          Perms{Read: "LEND_BL_READ", Write: "LEND_BL_WRITE", Review: "LEND_BL_REVIEW"},
		CreateSchema:   businessSchema,
		UpdateSchema:   businessSchema.Partial(),
		BulkItemSchema: businessSchema,
		MapBodyToRow:   passthrough(
			"applicant_name", "phone", "business_name", "gst_no", "amount",
			"tenure_months", "is_active",
		),
	},
}

// Module resolves a module key to its config.
func Module(key string) (Config, bool) {
	cfg, ok := Modules[key]
	return cfg, ok
}

func date(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindDate}
}

func num(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindNumber, NonNegative: true}
}

func intf(name string) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindInt}
}

// EV product bookings carry the full application: borrower, guarantor and
// co-applicant identity, bank details, and loan terms.
var evSchema = schema.New(
	date("login_date"),
	schema.Field{Name: "customer_name", Kind: schema.KindString, Required: true, Max: 191},
	date("borrower_dob"),
	str("father_name", 191),

	str("address_line1", 191),
	str("address_line2", 191),
	str("village", 191),
	str("district", 191),
	str("state", 191),
	str("pincode", 12),

	str("mobile_number", 32),
	num("loan_amount"),
	num("interest_rate"),
	intf("tenure_months"),

	str("guarantor_name", 191),
	date("guarantor_dob"),
	str("guarantor_aadhar", 32),
	str("guarantor_pan", 32),

	str("dealer_name", 191),
	str("name_in_bank", 191),
	str("bank_name", 191),
	str("account_number", 64),
	str("ifsc", 32),

	str("borrower_aadhar", 32),
	str("borrower_pan", 32),

	str("product_name", 191),
	str("lender_name", 191),
	date("agreement_date"),

	intf("cibil_score"),
	intf("guarantor_cibil_score"),
	str("relationship_with_borrower", 191),

	str("coapplicant_name", 191),
	date("coapplicant_dob"),
	str("coapplicant_aadhar", 32),
	str("coapplicant_pan", 32),
	intf("coapplicant_cibil_score"),

	num("apr"),
	active(),
).WithCustomObject()

var mobileSchema = schema.New(
	schema.Field{Name: "applicant_name", Kind: schema.KindString, Required: true, Max: 191},
	str("phone", 191),
	str("device_brand", 191),
	num("amount"),
	active(),
).WithCustomObject()

var educationSchema = schema.New(
	schema.Field{Name: "applicant_name", Kind: schema.KindString, Required: true, Max: 191},
	str("phone", 191),
	str("course", 191),
	num("amount"),
	active(),
).WithCustomObject()

var lenderEVSchema = schema.New(
	schema.Field{Name: "applicant_name", Kind: schema.KindString, Required: true, Max: 191},
	str("phone", 191),
	num("loan_amount"),
	num("rate"),
	intf("tenure_months"),
	str("dealer_id", 191),
	active(),
).WithCustomObject()

var adikoshSchema = schema.New(
	schema.Field{Name: "applicant_name", Kind: schema.KindString, Required: true, Max: 191},
	str("phone", 191),
	num("amount"),
	intf("bureau_score"),
	intf("tenure_months"),
	active(),
).WithCustomObject()

var schemeSchema = schema.New(
	schema.Field{Name: "applicant_name", Kind: schema.KindString, Required: true, Max: 191},
	str("phone", 191),
	num("amount"),
	str("scheme_name", 191),
	active(),
).WithCustomObject()

var businessSchema = schema.New(
	schema.Field{Name: "applicant_name", Kind: schema.KindString, Required: true, Max: 191},
	str("phone", 191),
	str("business_name", 191),
	str("gst_no", 191),
	num("amount"),
	intf("tenure_months"),
	active(),
).WithCustomObject()
