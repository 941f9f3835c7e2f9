package exporter

import (
	"context"
	"testing"

	"resource-exporter/core/ingest"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDocument = `
resources:
  - kind: AWS::EC2::VPC
    region: eu-west-1
    selector:
      query: '.IsDefault | not'
    port:
      entity:
        mappings:
          - identifier: .VpcId
            title: .VpcId
            blueprint: vpc
            properties:
              cidr: .CidrBlock
  - kind: AWS::Region
    port:
      entity:
        mappings:
          - identifier: .RegionName
            blueprint: region
          - identifier: .RegionName
            blueprint: vpc
`

func TestParseDocument_YAML(t *testing.T) {
	doc, err := ParseDocument([]byte(yamlDocument))
	require.NoError(t, err)
	require.Len(t, doc.Resources, 2)

	vpc := doc.Resources[0]
	assert.Equal(t, "AWS::EC2::VPC", vpc.Kind)
	assert.Equal(t, ".IsDefault | not", vpc.SelectorQuery())
	assert.Equal(t, ".CidrBlock", vpc.Mappings()[0].Properties["cidr"])
	assert.Equal(t, []string{"vpc", "region"}, doc.Blueprints())
}

func TestParseDocument_JSON(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"resources":[{"kind":"AWS::Tag","next_token":"abc","port":{"entity":{"mappings":[{"identifier":".identifier","blueprint":"tag"}]}}}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Resources, 1)
	require.NotNil(t, doc.Resources[0].NextToken)
	assert.Equal(t, "abc", *doc.Resources[0].NextToken)
}

func TestParseDocument_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing kind":     `{"resources":[{"port":{"entity":{"mappings":[{"identifier":".id","blueprint":"b"}]}}}]}`,
		"no mappings":      `{"resources":[{"kind":"AWS::Tag","port":{"entity":{"mappings":[]}}}]}`,
		"no blueprint":     "resources:\n  - kind: AWS::Tag\n    port:\n      entity:\n        mappings:\n          - identifier: .id\n",
		"malformed syntax": "resources: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/exporter/resources.yaml", []byte(yamlDocument), 0o644))

	doc, err := LoadDocument(fs, "/etc/exporter/resources.yaml")
	require.NoError(t, err)
	assert.Len(t, doc.Resources, 2)

	_, err = LoadDocument(fs, "/etc/exporter/missing.yaml")
	assert.Error(t, err)
}

func TestDocument_Find(t *testing.T) {
	doc, err := ParseDocument([]byte(yamlDocument))
	require.NoError(t, err)

	cfg, ok := doc.Find("aws::ec2::vpc", "")
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", cfg.Region)

	cfg.Mappings()[0].Properties["cidr"] = "changed"
	assert.Equal(t, ".CidrBlock", doc.Resources[0].Mappings()[0].Properties["cidr"])

	_, ok = doc.Find("AWS::EC2::VPC", "us-east-1")
	assert.False(t, ok)
	_, ok = doc.Find("AWS::EKS::Cluster", "")
	assert.False(t, ok)
}

func TestCheckpoints(t *testing.T) {
	cp, _ := newCheckpoints()
	ctx := context.Background()

	assert.Equal(t, "checkpoint/resources-abc.json", cp.Key("abc"))

	_, ok, err := cp.Load(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	tok := "t-2"
	cfg := resourceConfig("AWS::Lambda::Function", "fn")
	cfg.NextToken = &tok
	require.NoError(t, cp.Save(ctx, "abc", &Document{
		Resources: []ingest.ResourceConfig{cfg},
		Progress:  &Progress{Source: "abc", Seen: ingest.NewEntitySet("fn;one"), Blueprints: []string{"fn"}},
	}))

	doc, ok, err := cp.Load(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t-2", *doc.Resources[0].NextToken)
	require.NotNil(t, doc.Progress)
	assert.Equal(t, []string{"fn;one"}, doc.Progress.Seen.Sorted())
	assert.Equal(t, "abc", doc.Source())

	_, ok, err = cp.Load(ctx, "def")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cp.Clear(ctx, "abc"))
	require.NoError(t, cp.Clear(ctx, "abc"))
	_, ok, err = cp.Load(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocument_Source(t *testing.T) {
	a := &Document{Resources: []ingest.ResourceConfig{resourceConfig("Test::A", "alpha")}}
	b := &Document{Resources: []ingest.ResourceConfig{resourceConfig("Test::B", "beta")}}

	assert.NotEmpty(t, a.Source())
	assert.Equal(t, a.Source(), (&Document{Resources: []ingest.ResourceConfig{resourceConfig("Test::A", "alpha")}}).Source())
	assert.NotEqual(t, a.Source(), b.Source())

	b.Progress = &Progress{Source: a.Source()}
	assert.Equal(t, a.Source(), b.Source())
}
