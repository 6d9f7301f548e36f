package samples

import "github.com/TFMV/reconcile/pkg/reconcile"

func init() {
	employees := dataset{
		schema: schema(field("id", i64), field("name", str), field("salary", i64), field("department", str), field("hire_date", tsNs)),
		rows: [][]any{
			{1, "Alice", 50000, "HR", day("2020-01-15")},
			{2, "Bob", 60000, "IT", day("2019-03-22")},
			{3, "Charlie", 75000, "Finance", day("2021-07-08")},
			{4, "Diana", 80000, "IT", day("2018-11-30")},
			{5, "Eve", 55000, "HR", day("2022-02-14")},
		},
	}
	register(Scenario{
		Name:        "identical",
		Description: "Identical tables, a perfect match",
		Keys:        pairedKeys("id", "id"),
		legacy:      employees,
		cloud:       employees,
	})

	renamed := [][]any{
		{1, "Alice Johnson", 50000, "HR"},
		{2, "Bob Smith", 60000, "IT"},
		{3, "Charlie Brown", 75000, "Finance"},
		{4, "Diana Prince", 80000, "IT"},
		{5, "Eve Adams", 55000, "HR"},
	}
	register(Scenario{
		Name:        "schema-rename",
		Description: "Same data under different column names",
		Keys:        pairedKeys("employee_id", "id"),
		legacy: dataset{
			schema: schema(field("employee_id", i64), field("full_name", str), field("annual_salary", i64), field("dept", str)),
			rows:   renamed,
		},
		cloud: dataset{
			schema: schema(field("id", i64), field("name", str), field("salary", i64), field("department", str)),
			rows:   renamed,
		},
	})

	register(Scenario{
		Name:        "type-mismatch",
		Description: "Same columns with different types, including the key",
		Keys:        pairedKeys("id", "id"),
		legacy: dataset{
			schema: schema(field("id", i64), field("score", f64), field("active", boo), field("category", str)),
			rows: [][]any{
				{1, 85.5, true, "A"},
				{2, 92.3, false, "B"},
				{3, 78.7, true, "A"},
				{4, 88.1, true, "C"},
				{5, 95.2, false, "B"},
			},
		},
		cloud: dataset{
			schema: schema(field("id", str), field("score", i64), field("active", str), field("category", str)),
			rows: [][]any{
				{"1", 85, "Y", "A"},
				{"2", 92, "N", "B"},
				{"3", 78, "Y", "A"},
				{"4", 88, "Y", "C"},
				{"5", 95, "N", "B"},
			},
		},
	})

	productSchema := schema(field("product_id", i64), field("product_name", str), field("price", f64), field("in_stock", boo))
	products := [][]any{
		{101, "Laptop", 999.99, true},
		{102, "Mouse", 25.99, true},
		{103, "Keyboard", 79.99, false},
		{104, "Monitor", 299.99, true},
		{105, "Webcam", 89.99, true},
	}
	register(Scenario{
		Name:        "row-count",
		Description: "Cloud is missing two rows",
		Keys:        pairedKeys("product_id", "product_id"),
		legacy:      dataset{schema: productSchema, rows: products},
		cloud:       dataset{schema: productSchema, rows: products[:3]},
	})

	orderSchema := schema(field("order_id", i64), field("customer_id", i64), field("order_total", f64), field("status", str))
	register(Scenario{
		Name:        "value-mismatch",
		Description: "Same keys, two rows with changed values",
		Keys:        pairedKeys("order_id", "order_id"),
		legacy: dataset{schema: orderSchema, rows: [][]any{
			{1001, 501, 150.75, "shipped"},
			{1002, 502, 89.50, "pending"},
			{1003, 503, 245.00, "delivered"},
			{1004, 504, 67.25, "cancelled"},
			{1005, 505, 189.99, "shipped"},
		}},
		cloud: dataset{schema: orderSchema, rows: [][]any{
			{1001, 501, 150.75, "shipped"},
			{1002, 502, 89.50, "pending"},
			{1003, 503, 250.00, "delivered"},
			{1004, 504, 67.25, "processing"},
			{1005, 505, 189.99, "shipped"},
		}},
	})

	userSchema := schema(field("user_id", i64), field("email", str), field("phone", str), field("age", i64))
	register(Scenario{
		Name:        "nulls",
		Description: "Legacy has missing values that cloud filled in",
		Keys:        pairedKeys("user_id", "user_id"),
		legacy: dataset{schema: userSchema, rows: [][]any{
			{1, "alice@email.com", "555-0101", 25},
			{2, "bob@email.com", nil, 30},
			{3, nil, "555-0103", 35},
			{4, "diana@email.com", "555-0104", nil},
			{5, "eve@email.com", nil, 28},
		}},
		cloud: dataset{schema: userSchema, rows: [][]any{
			{1, "alice@email.com", "555-0101", 25},
			{2, "bob@email.com", "555-0102", 30},
			{3, "charlie@email.com", "555-0103", 35},
			{4, "diana@email.com", "555-0104", 40},
			{5, "eve@email.com", "555-0105", 28},
		}},
	})

	txSchema := schema(field("transaction_id", i64), field("amount", f64), field("merchant", str), field("date", tsNs))
	transactions := [][]any{
		{1, 100.0, "Store A", day("2023-01-01")},
		{2, 250.0, "Store B", day("2023-01-02")},
		{3, 75.0, "Store C", day("2023-01-03")},
		{4, 100.0, "Store A", day("2023-01-01")},
		{5, 325.0, "Store D", day("2023-01-05")},
		{6, 150.0, "Store E", day("2023-01-06")},
	}
	register(Scenario{
		Name:        "duplicates",
		Description: "Cloud repeats transaction 4",
		Keys:        pairedKeys("transaction_id", "transaction_id"),
		legacy:      dataset{schema: txSchema, rows: transactions},
		cloud:       dataset{schema: txSchema, rows: append(append([][]any(nil), transactions...), transactions[3])},
	})

	register(Scenario{
		Name:        "extra-columns",
		Description: "Cloud carries two columns legacy does not have",
		Keys:        pairedKeys("student_id", "student_id"),
		legacy: dataset{
			schema: schema(field("student_id", i64), field("name", str), field("grade", str)),
			rows: [][]any{
				{1001, "John Doe", "A"},
				{1002, "Jane Smith", "B+"},
				{1003, "Mike Johnson", "A-"},
				{1004, "Sarah Wilson", "B"},
			},
		},
		cloud: dataset{
			schema: schema(field("student_id", i64), field("name", str), field("grade", str), field("attendance", i64), field("final_score", f64)),
			rows: [][]any{
				{1001, "John Doe", "A", 95, 91.5},
				{1002, "Jane Smith", "B+", 87, 83.2},
				{1003, "Mike Johnson", "A-", 92, 89.7},
				{1004, "Sarah Wilson", "B", 89, 85.1},
			},
		},
	})

	salesSchema := schema(field("region", str), field("sales", i64), field("quarter", str))
	register(Scenario{
		Name:        "row-order",
		Description: "Same rows in a different order",
		Keys:        pairedKeys("region", "region"),
		legacy: dataset{schema: salesSchema, rows: [][]any{
			{"North", 1200000, "Q1"},
			{"South", 980000, "Q1"},
			{"East", 1450000, "Q1"},
			{"West", 1100000, "Q1"},
			{"Central", 750000, "Q1"},
		}},
		cloud: dataset{schema: salesSchema, rows: [][]any{
			{"West", 1100000, "Q1"},
			{"Central", 750000, "Q1"},
			{"North", 1200000, "Q1"},
			{"East", 1450000, "Q1"},
			{"South", 980000, "Q1"},
		}},
	})

	register(Scenario{
		Name:        "complex",
		Description: "Renamed key, missing and extra rows, changed values and types",
		Keys:        pairedKeys("account_id", "account_num"),
		legacy: dataset{
			schema: schema(field("account_id", i64), field("balance", f64), field("account_type", str), field("last_transaction", tsNs), field("is_active", boo)),
			rows: [][]any{
				{2001, 1500.50, "Checking", day("2023-06-15"), true},
				{2002, 2300.75, "Savings", day("2023-06-14"), true},
				{2003, 890.25, "Checking", day("2023-06-13"), false},
				{2004, 4200.00, "Investment", day("2023-06-12"), true},
				{2005, 156.80, "Checking", day("2023-06-11"), true},
				{2006, 3750.90, "Savings", day("2023-06-10"), true},
			},
		},
		cloud: dataset{
			schema: schema(field("account_num", i64), field("balance", f64), field("type", str), field("last_transaction", str), field("status", str), field("credit_limit", i64)),
			rows: [][]any{
				{2001, 1500.50, "Checking", "2023-06-15", "Active", 5000},
				{2002, 2350.75, "Savings", "2023-06-14", "Active", 0},
				{2003, 890.25, "Checking", "2023-06-13", "Inactive", 1000},
				{2004, 4200.00, "Investment", "2023-06-12", "Active", 0},
				{2007, 890.45, "Checking", "2023-06-09", "Active", 2500},
			},
		},
	})

	register(Scenario{
		Name:        "shared-key",
		Description: "Identical tables joined on a shared column list",
		Keys:        reconcile.KeyInput{JoinColumns: []string{"id"}},
		legacy:      employees,
		cloud:       employees,
	})
}
