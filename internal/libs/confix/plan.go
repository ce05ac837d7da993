package confix

import (
	"context"

	"github.com/creachadair/tomledit"
	"github.com/creachadair/tomledit/parser"
	"github.com/creachadair/tomledit/transform"
)

// The plan is the sequence of transformation steps that should be applied, in
// the given order, to convert a configuration file to be compatible with the
// current version of the config grammar.
var plan = transform.Plan{
	{
		Desc: "Rename everything from snake_case to kebab-case",
		T:    transform.SnakeToKebab(),
	},
	{
		Desc: "Move top-level db-backend and db-dir under [store]",
		T:    moveToTable("store", "db-backend", "db-dir"),
	},
	{
		Desc: "Rename pubsub.buffer-size to pubsub.buffer-capacity",
		T: transform.Func(func(ctx context.Context, doc *tomledit.Document) error {
			// If the key already exists, rename it preserving its value.
			if found := doc.First("pubsub", "buffer-size"); found != nil {
				found.KeyValue.Name = parser.Key{"buffer-capacity"}
				return nil
			}

			// Otherwise, add it.
			return transform.EnsureKey(parser.Key{"pubsub"}, &parser.KeyValue{
				Block: parser.Comments{
					"Capacity of the publish queue. 0 means publishing waits for the server",
					"to take each record.",
				},
				Name:  parser.Key{"buffer-capacity"},
				Value: parser.MustValue("0"),
			})(ctx, doc)
		}),
		ErrorOK: true,
	},
	{
		Desc: "Add pubsub.subscription-limit setting",
		T: transform.EnsureKey(parser.Key{"pubsub"}, &parser.KeyValue{
			Block: parser.Comments{
				"Number of undelivered records a subscription can hold before it is",
				"terminated.",
			},
			Name:  parser.Key{"subscription-limit"},
			Value: parser.MustValue("1000"),
		}),
		ErrorOK: true,
	},
	{
		Desc: "Add [parser] max-length setting",
		T: transform.EnsureKey(parser.Key{"parser"}, &parser.KeyValue{
			Block: parser.Comments{"Maximum length of a query in bytes"},
			Name:  parser.Key{"max-length"},
			Value: parser.MustValue("65536"),
		}),
		ErrorOK: true,
	},
	{
		Desc:    "Remove vestigial instrumentation.max-open-connections setting",
		T:       transform.Remove(parser.Key{"instrumentation", "max-open-connections"}),
		ErrorOK: true,
	},
	{
		Desc: `Add top-level log-format setting (default "plain")`,
		T: transform.EnsureKey(nil, &parser.KeyValue{
			Block: parser.Comments{"Output format: 'plain' (colored text), 'text' or 'json'"},
			Name:  parser.Key{"log-format"},
			Value: parser.MustValue(`"plain"`),
		}),
		ErrorOK: true,
	},
}

// moveToTable moves the named top-level keys into the table, creating the
// table if it does not exist. A key already present in the table wins.
func moveToTable(table string, names ...string) transform.Func {
	return func(_ context.Context, doc *tomledit.Document) error {
		want := make(map[string]bool, len(names))
		for _, name := range names {
			want[name] = true
		}

		var found []*tomledit.Entry
		doc.Global.Scan(func(key parser.Key, e *tomledit.Entry) bool {
			if len(key) == 1 && want[key[0]] {
				found = append(found, e)
			}
			return true
		})
		if len(found) == 0 {
			return nil // nothing to do
		}

		// Now that we know we have work to do, find the target table.
		var sec *tomledit.Section
		if dst := transform.FindTable(doc, table); dst == nil {
			sec = &tomledit.Section{
				Heading: &parser.Heading{Name: parser.Key{table}},
			}
			doc.Sections = append(doc.Sections, sec)
		} else {
			sec = dst.Section
		}

		for _, e := range found {
			e.Remove()
			if doc.First(table, e.Name[0]) != nil {
				continue
			}
			sec.Items = append(sec.Items, e.KeyValue)
		}
		return nil
	}
}
