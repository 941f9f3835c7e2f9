package aws

import (
	"context"
	"fmt"

	"resource-exporter/core/ingest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// consoleURL links a stack id to the AWS console.
const consoleURL = "https://console.aws.amazon.com/go/view?arn="

// StackFetcher pages through CloudFormation stacks. Deleted stacks are skipped.
type StackFetcher struct {
	api      CloudFormationAPI
	statuses []cftypes.StackStatus
}

// NewStackFetcher creates a stack fetcher. When statuses is not empty only
// stacks in one of them are listed.
func NewStackFetcher(api CloudFormationAPI, statuses []string) *StackFetcher {
	f := &StackFetcher{api: api}
	for _, s := range statuses {
		f.statuses = append(f.statuses, cftypes.StackStatus(s))
	}
	return f
}

// FetchPage lists one page of stack summaries.
func (f *StackFetcher) FetchPage(ctx context.Context, token *string) (ingest.Page, error) {
	out, err := f.api.ListStacks(ctx, &cloudformation.ListStacksInput{
		NextToken:         token,
		StackStatusFilter: f.statuses,
	})
	if err != nil {
		return ingest.Page{}, fmt.Errorf("list stacks: %w", err)
	}

	var page ingest.Page
	for _, s := range out.StackSummaries {
		if s.StackStatus == cftypes.StackStatusDeleteComplete {
			continue
		}
		page.Resources = append(page.Resources, ingest.RawResource{
			ingest.IdentifierField: aws.ToString(s.StackId),
			"StackName":            aws.ToString(s.StackName),
			"StackStatus":          string(s.StackStatus),
		})
	}
	if aws.ToString(out.NextToken) != "" {
		page.NextToken = out.NextToken
	}
	return page, nil
}

// FetchAll walks every page.
func (f *StackFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	var all []ingest.RawResource
	var token *string
	for {
		page, err := f.FetchPage(ctx, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Resources...)
		if page.NextToken == nil {
			return all, nil
		}
		token = page.NextToken
	}
}

// FetchOne describes a stack with its resources, console link and original template.
func (f *StackFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	stacks, err := f.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(id)})
	if err != nil {
		if isAPINotFound(err) {
			return nil, fmt.Errorf("stack %s: %w", id, ingest.ErrNotFound)
		}
		return nil, fmt.Errorf("describe stack %s: %w", id, err)
	}
	if len(stacks.Stacks) == 0 {
		return nil, fmt.Errorf("stack %s: %w", id, ingest.ErrNotFound)
	}
	stack := stacks.Stacks[0]

	resources, err := f.api.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{StackName: aws.String(id)})
	if err != nil {
		return nil, fmt.Errorf("describe resources of stack %s: %w", id, err)
	}
	tmpl, err := f.api.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(id),
		TemplateStage: cftypes.TemplateStageOriginal,
	})
	if err != nil {
		return nil, fmt.Errorf("get template of stack %s: %w", id, err)
	}

	res, err := toRaw(stack)
	if err != nil {
		return nil, err
	}
	stackResources := make([]ingest.RawResource, 0, len(resources.StackResources))
	for _, r := range resources.StackResources {
		raw, err := toRaw(r)
		if err != nil {
			return nil, err
		}
		stackResources = append(stackResources, raw)
	}

	res[ingest.IdentifierField] = aws.ToString(stack.StackId)
	res["StackResources"] = stackResources
	res["Url"] = consoleURL + aws.ToString(stack.StackId)
	res["TemplateBody"] = aws.ToString(tmpl.TemplateBody)
	return res, nil
}
