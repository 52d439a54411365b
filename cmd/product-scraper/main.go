// Command product-scraper extracts product data from a single product page.
//
// Usage:
//
//	product-scraper crawl <product-url>
//	product-scraper details <product-url>
//	product-scraper serve
package main

func main() {
	Execute()
}
